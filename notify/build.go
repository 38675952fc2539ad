package notify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/researchaccelerator-hub/telegram-informer/config"
	"github.com/researchaccelerator-hub/telegram-informer/distributed"
	"github.com/rs/zerolog/log"
)

// Deps are the runtime handles sinks may need.
type Deps struct {
	Sender TextSender
	Store  MessageRecorder
}

// Sinks is the set of notifiers built from configuration, together with the
// resources that must be released at shutdown.
type Sinks struct {
	Notifiers []Notifier
	closers   []io.Closer
}

// Close releases the resources held by the sinks.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildSinks creates the notifiers enabled in cfg, in a fixed order:
// telegram, sheets, sql, log, pubsub.
func BuildSinks(ctx context.Context, cfg config.NotifyConfig, deps Deps) (*Sinks, error) {
	sinks := &Sinks{}
	fail := func(err error) (*Sinks, error) {
		if cerr := sinks.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to release sinks after build error")
		}
		return nil, err
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken != "" {
			bot, err := NewBotNotifier(cfg.Telegram.BotToken, cfg.Telegram.MonitorChatID)
			if err != nil {
				return fail(err)
			}
			sinks.Notifiers = append(sinks.Notifiers, bot)
		} else {
			if deps.Sender == nil {
				return fail(fmt.Errorf("telegram sink needs an account session or a bot token"))
			}
			sinks.Notifiers = append(sinks.Notifiers, NewLiveChatNotifier(deps.Sender, cfg.Telegram.MonitorChatID))
		}
	}

	if cfg.Sheets.Enabled {
		appender, err := NewSheetsAppender(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range)
		if err != nil {
			return fail(err)
		}
		sinks.Notifiers = append(sinks.Notifiers, NewSheetNotifier(appender))
	}

	if cfg.SQL.Enabled {
		if deps.Store == nil {
			return fail(fmt.Errorf("sql sink needs a store"))
		}
		sinks.Notifiers = append(sinks.Notifiers, NewSQLNotifier(deps.Store))
	}

	if cfg.Log.Enabled {
		logSink, err := NewLogNotifier(cfg.Log.Path)
		if err != nil {
			return fail(err)
		}
		sinks.Notifiers = append(sinks.Notifiers, logSink)
		sinks.closers = append(sinks.closers, logSink)
	}

	if cfg.PubSub.Enabled {
		client, err := distributed.NewPubSubClient(cfg.PubSub.Component, cfg.PubSub.Topic)
		if err != nil {
			return fail(err)
		}
		sinks.Notifiers = append(sinks.Notifiers, NewPubSubNotifier(client))
		sinks.closers = append(sinks.closers, client)
	}

	if len(sinks.Notifiers) == 0 {
		log.Warn().Msg("No notification sinks enabled, matches will only be logged")
	}
	return sinks, nil
}
