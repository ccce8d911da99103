package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcin-skalski/review-bridge/internal/board"
	"github.com/marcin-skalski/review-bridge/internal/config"
	"github.com/marcin-skalski/review-bridge/internal/daemon"
	"github.com/marcin-skalski/review-bridge/internal/logging"
	"github.com/marcin-skalski/review-bridge/internal/trello"
	"github.com/marcin-skalski/review-bridge/internal/view"
)

type options struct {
	configPath string
	key        string
	token      string
	board      string
	quiet      bool
	debug      bool

	secret string
	port   int
}

func (o *options) bindGlobal(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "path to config file (default "+config.DefaultPath+" if present)")
	fs.StringVarP(&o.key, "key", "k", "", "Trello API key")
	fs.StringVarP(&o.token, "token", "t", "", "Trello API token")
	fs.StringVarP(&o.board, "board", "b", "", "Trello board id")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "only log warnings and errors")
	fs.BoolVarP(&o.debug, "debug", "d", false, "log debug output")
}

func (o *options) bindServe(fs *pflag.FlagSet) {
	fs.StringVarP(&o.secret, "secret", "s", "", "secret expected in the webhook URL")
	fs.IntVarP(&o.port, "port", "p", 0, fmt.Sprintf("port to listen on (default %d)", config.DefaultPort))
}

func (o *options) overrides() config.Overrides {
	ov := config.Overrides{
		Key:    o.key,
		Token:  o.token,
		Board:  o.board,
		Secret: o.secret,
		Port:   o.port,
	}
	switch {
	case o.debug:
		ov.LogLevel = "debug"
	case o.quiet:
		ov.LogLevel = "warn"
	}
	return ov
}

// load returns the config and a logger. closeLog must be called once the
// command is done.
func (o *options) load() (cfg *config.Config, logger *slog.Logger, closeLog func() error, err error) {
	if o.quiet && o.debug {
		return nil, nil, nil, fmt.Errorf("--quiet and --debug are mutually exclusive")
	}
	cfg, err = config.Load(o.configPath, o.overrides())
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err = logging.SetupLogger(cfg.LogFile, cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup logger: %w", err)
	}
	if cfg.Source == "" {
		logger.Info("no config file found, using flags and environment", "path", config.DefaultPath)
	}
	return cfg, logger, closeLog, nil
}

func newTrelloClient(cfg *config.Config, logger *slog.Logger) (*trello.Client, error) {
	return trello.NewClient(trello.Config{
		BaseURL: cfg.Trello.BaseURL,
		Key:     cfg.Trello.Key,
		Token:   cfg.Trello.Token,
		Timeout: cfg.Trello.Timeout,
		Retries: *cfg.Trello.Retries,
		Logger:  logger,
	})
}

func runServe(o *options) error {
	cfg, logger, closeLog, err := o.load()
	if err != nil {
		return err
	}
	defer closeLog()

	if err := cfg.RequireSecret(); err != nil {
		return err
	}

	client, err := newTrelloClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("review-bridge starting", "config", cfg.Source)
	if err := daemon.New(cfg, client, logger).Run(ctx); err != nil {
		logger.Error("daemon error", "err", err)
		return err
	}
	return nil
}

func runBoard(o *options) error {
	cfg, logger, closeLog, err := o.load()
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newTrelloClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := board.New(client, board.Options{
		BoardID:  cfg.Trello.Board,
		ListIDs:  cfg.ListIDs,
		ReadOnly: true,
	}, logger)
	if err := state.Init(ctx); err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	fmt.Print(view.RenderBoard(cfg.Trello.Board, state.Snapshot()))
	return nil
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "review-bridge",
		Short: "Mirror GitHub pull requests and review votes onto a Trello board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(o)
		},
		SilenceUsage: true,
	}
	o.bindGlobal(root.PersistentFlags())
	o.bindServe(root.Flags())

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Listen for GitHub webhooks (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(o)
		},
		SilenceUsage: true,
	}
	o.bindServe(serve.Flags())

	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Print the board lists and their cards without changing the board",
		Long:  "Resolve the configured lists of the board and print their cards. Lists are\n" +
			"never created or reopened: missing roles are left out and closed lists are\n" +
			"marked as closed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(o)
		},
		SilenceUsage: true,
	}

	root.AddCommand(serve, boardCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
