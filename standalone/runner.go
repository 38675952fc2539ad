// Package standalone runs the informer for one account in a single process.
package standalone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/common"
	"github.com/researchaccelerator-hub/telegram-informer/config"
	"github.com/researchaccelerator-hub/telegram-informer/crawl"
	"github.com/researchaccelerator-hub/telegram-informer/distributed"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/monitor"
	"github.com/researchaccelerator-hub/telegram-informer/notify"
	"github.com/researchaccelerator-hub/telegram-informer/queue"
	"github.com/researchaccelerator-hub/telegram-informer/scheduler"
	"github.com/researchaccelerator-hub/telegram-informer/store"
	"github.com/researchaccelerator-hub/telegram-informer/telegramhelper"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StatusInterval is how often a heartbeat is published when pub/sub is on.
const StatusInterval = 5 * time.Minute

// Runner wires the foreground listener and joiner, the background scraper
// and the scheduler around one account.
type Runner struct {
	cfg      *config.InformerConfig
	telegram telegramhelper.TelegramService
	runID    string
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg *config.InformerConfig, telegram telegramhelper.TelegramService) *Runner {
	return &Runner{cfg: cfg, telegram: telegram, runID: common.GenerateRunID()}
}

// Run starts the informer and blocks until ctx is cancelled or a component
// fails. A missing account is returned as an error before any session is
// opened.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.cfg
	started := time.Now()
	log.Info().Str("run_id", r.runID).Int64("account_id", cfg.AccountID).Msg("Starting informer")

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	account, err := st.GetAccount(ctx, cfg.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account %d: %w", cfg.AccountID, err)
	}

	keywords, err := st.ListKeywords(ctx)
	if err != nil {
		return fmt.Errorf("failed to load keywords: %w", err)
	}
	matcher := monitor.NewMatcher(keywords)

	primary, err := r.telegram.InitializeClient(telegramhelper.PrimarySession)
	if err != nil {
		return fmt.Errorf("failed to open primary session: %w", err)
	}
	defer telegramhelper.CloseClient(primary)
	if _, err := r.telegram.GetMe(primary); err != nil {
		return err
	}
	provider := telegramhelper.NewProvider(primary)

	var scraperProvider *telegramhelper.Provider
	if cfg.Scraper.Enabled {
		if cfg.Scraper.SharedSession {
			scraperProvider = provider
		} else {
			background, err := r.telegram.InitializeClient(telegramhelper.ScraperSession)
			if err != nil {
				return fmt.Errorf("failed to open scraper session: %w", err)
			}
			defer telegramhelper.CloseClient(background)
			scraperProvider = telegramhelper.NewProvider(background)
		}
	}

	registry := crawl.NewRegistry()
	cache := crawl.NewMetadataCache(provider, cfg.Crawl.CacheTTL)
	joins := queue.New[model.JoinRequest]()
	scrapes := queue.New[model.ScrapeRequest]()
	defer joins.Close()
	defer scrapes.Close()
	discoverer := crawl.NewDiscoverer(registry, cfg.Crawl.Capacity, nil)

	if _, err := Bootstrap(ctx, provider, st, account.ID, cfg.Crawl.DialogLimit, registry, cache, joins); err != nil {
		return err
	}

	sinks, err := notify.BuildSinks(ctx, cfg.Notify, notify.Deps{Sender: provider, Store: st})
	if err != nil {
		return err
	}
	defer sinks.Close()
	dispatcher := notify.NewDispatcher(sinks.Notifiers...)

	listener := monitor.NewListener(monitor.ListenerOptions{
		Provider:     provider,
		Matcher:      matcher,
		Dispatcher:   dispatcher,
		Cache:        cache,
		Registry:     registry,
		AccountID:    account.ID,
		CrawlEnabled: cfg.Crawl.Enabled,
		Joins:        joins,
	})

	joiner := crawl.NewJoinProcessor(crawl.JoinProcessorOptions{
		Provider:   provider,
		Store:      st,
		Registry:   registry,
		Cache:      cache,
		Scrapes:    scrapes,
		Pacer:      crawl.NewPacer(cfg.Crawl.JoinMin, cfg.Crawl.JoinMax, time.Now().UnixNano()),
		AccountID:  account.ID,
		Discoverer: discoverer,
	})

	sched := scheduler.New()
	if err := sched.Every("keyword-refresh", cfg.KeywordRefresh, matcher.Refresh); err != nil {
		return err
	}

	var status *distributed.PubSubClient
	if cfg.Notify.PubSub.Enabled {
		status, err = distributed.NewPubSubClient(cfg.Notify.PubSub.Component, cfg.Notify.PubSub.Topic)
		if err != nil {
			return err
		}
		defer status.Close()
		heartbeat := func(ctx context.Context) error {
			return r.publishStatus(ctx, status, distributed.MessageTypeHeartbeat, account.ID, registry, joins, scrapes, started)
		}
		if err := sched.Every("status", StatusInterval, heartbeat); err != nil {
			return err
		}
		if err := r.publishStatus(ctx, status, distributed.MessageTypeInformerStarted, account.ID, registry, joins, scrapes, started); err != nil {
			log.Warn().Err(err).Msg("Failed to publish startup status")
		}
	}

	log.Info().
		Int("keywords", matcher.Len()).
		Int("tracked", registry.Len()).
		Strs("sinks", dispatcher.Names()).
		Bool("crawl_enabled", cfg.Crawl.Enabled).
		Bool("scraper_enabled", scraperProvider != nil).
		Msg("Informer running")

	updates := primary.GetListener()
	defer updates.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx, updates.Updates) })
	g.Go(func() error { return joiner.Run(gctx, joins) })
	if scraperProvider != nil {
		scraperOpts := crawl.ScraperOptions{
			Provider:  scraperProvider,
			Store:     st,
			Cache:     crawl.NewMetadataCache(scraperProvider, cfg.Crawl.CacheTTL),
			AccountID: account.ID,
			Interval:  cfg.Crawl.ScrapeInterval,
		}
		if cfg.Crawl.Enabled {
			scraperOpts.Joins = joins
		}
		scraper := crawl.NewScraper(scraperOpts)
		g.Go(func() error { return scraper.Run(gctx, scrapes) })
	}
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		joins.Close()
		scrapes.Close()
		return nil
	})

	err = g.Wait()

	if status != nil {
		// the run context is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if perr := r.publishStatus(shutdownCtx, status, distributed.MessageTypeInformerStopping, account.ID, registry, joins, scrapes, started); perr != nil {
			log.Warn().Err(perr).Msg("Failed to publish shutdown status")
		}
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Str("run_id", r.runID).Dur("uptime", time.Since(started)).Msg("Informer stopped")
	return nil
}

func (r *Runner) publishStatus(ctx context.Context, client *distributed.PubSubClient, messageType string, accountID int64,
	registry *crawl.Registry, joins *queue.Queue[model.JoinRequest], scrapes *queue.Queue[model.ScrapeRequest], started time.Time) error {
	msg := distributed.NewStatusMessage(messageType, accountID, r.runID, registry.Len(), joins.Len(), scrapes.Len(), time.Since(started))
	return client.PublishStatus(ctx, msg)
}
