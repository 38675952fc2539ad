package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/researchaccelerator-hub/telegram-informer/config"
	"github.com/researchaccelerator-hub/telegram-informer/standalone"
	"github.com/researchaccelerator-hub/telegram-informer/store"
	"github.com/researchaccelerator-hub/telegram-informer/telegramhelper"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// authTimeout bounds an interactive login, which waits for a phone code.
const authTimeout = 10 * time.Minute

type cli struct {
	v          *viper.Viper
	configFile string
	envFile    string
	cfg        *config.InformerConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Informer failed")
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "telegram-informer",
		Short:         "Monitor Telegram groups and channels for keywords",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
		RunE: c.runInformer,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&c.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("pretty", false, "Human readable console logs")
	flags.Int64("account-id", 0, "Account to run as")
	flags.String("db-driver", "sqlite", "Database driver (sqlite, pgx)")
	flags.String("db-dsn", "informer.db", "Database connection string")
	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"log.pretty":      "pretty",
		"account_id":      "account-id",
		"database.driver": "db-driver",
		"database.dsn":    "db-dsn",
	} {
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Listen, join and scrape (default)",
			RunE:  c.runInformer,
		},
		&cobra.Command{
			Use:   "build-database",
			Short: "Create the schema and seed the account, channels and keywords",
			RunE:  c.buildDatabase,
		},
		c.authCmd(),
		&cobra.Command{
			Use:   "config",
			Short: "Print the effective configuration",
			RunE:  c.printConfig,
		},
	)
	return root
}

func (c *cli) load() error {
	if err := godotenv.Load(c.envFile); err != nil {
		log.Debug().Str("env_file", c.envFile).Msg("No env file loaded, using the environment")
	}
	cfg, err := config.Load(c.v, c.configFile)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log, os.Stderr)
	c.cfg = cfg
	return nil
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg config.LogConfig, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
}

func (c *cli) runInformer(cmd *cobra.Command, _ []string) error {
	if err := c.cfg.ValidateForRun(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	service := telegramhelper.NewTelegramService(c.cfg.Telegram)
	if err := standalone.NewRunner(c.cfg, service).Run(cmd.Context()); err != nil {
		if store.IsNotFound(err) {
			log.Fatal().Err(err).Int64("account_id", c.cfg.AccountID).Msg("Configured account does not exist, run build-database first")
		}
		return err
	}
	return nil
}

func (c *cli) buildDatabase(cmd *cobra.Command, _ []string) error {
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx := cmd.Context()

	st, err := store.Open(ctx, c.cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.Seed(ctx, c.cfg.Initial)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"account %d: %d conversations, %d seeds, %d keywords, %d monitors (%d unmonitored)\n",
		report.AccountID, report.Conversations, report.Seeds, report.Keywords, report.Monitors, report.Unmonitored)
	return nil
}

func (c *cli) authCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log a TDLib session in interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if session != telegramhelper.PrimarySession && session != telegramhelper.ScraperSession {
				return fmt.Errorf("unknown session %q, expected %s or %s", session, telegramhelper.PrimarySession, telegramhelper.ScraperSession)
			}
			service := telegramhelper.NewTelegramService(c.cfg.Telegram).WithTimeout(authTimeout)
			tdlibClient, err := service.InitializeClient(session)
			if err != nil {
				return err
			}
			defer telegramhelper.CloseClient(tdlibClient)

			me, err := service.GetMe(tdlibClient)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s logged in as %s %s (id %d)\n", session, me.FirstName, me.LastName, me.Id)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", telegramhelper.PrimarySession, "Session to log in (primary, scraper)")
	return cmd
}

func (c *cli) printConfig(cmd *cobra.Command, _ []string) error {
	out, err := config.Dump(c.cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
