package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/marcin-skalski/review-bridge/internal/board"
	"github.com/marcin-skalski/review-bridge/internal/config"
	"github.com/marcin-skalski/review-bridge/internal/review"
	"github.com/marcin-skalski/review-bridge/internal/router"
	"github.com/marcin-skalski/review-bridge/internal/server"
)

// Daemon owns the board cache and the webhook server for one process.
type Daemon struct {
	cfg    *config.Config
	board  *board.State
	server *server.Server
	logger *slog.Logger
}

func New(cfg *config.Config, api board.API, logger *slog.Logger) *Daemon {
	state := board.New(api, board.Options{
		BoardID: cfg.Trello.Board,
		ListIDs: cfg.ListIDs,
	}, logger)

	rt := router.New(
		review.NewEngine(state, logger),
		router.FileSink{Dir: cfg.Server.UnknownDir},
		logger,
	)

	srv := server.New(server.Options{
		Port:        cfg.Server.Port,
		Secret:      cfg.Server.Secret,
		ErrorStatus: cfg.Server.ErrorStatus,
	}, rt, logger)

	return &Daemon{cfg: cfg, board: state, server: srv, logger: logger}
}

// Run resolves the board, then serves webhooks until ctx is cancelled. A
// board that cannot be resolved at startup is fatal.
func (d *Daemon) Run(ctx context.Context) error {
	return d.run(ctx, d.server.ListenAndServe)
}

func (d *Daemon) run(ctx context.Context, serve func(context.Context) error) error {
	d.logger.Info("daemon started", "board", d.cfg.Trello.Board, "port", d.cfg.Server.Port)

	if err := d.board.Init(ctx); err != nil {
		return fmt.Errorf("init board: %w", err)
	}

	if d.cfg.ResyncSchedule != "" {
		c, err := d.startResync(ctx)
		if err != nil {
			return err
		}
		defer func() {
			<-c.Stop().Done()
			d.logger.Info("resync stopped")
		}()
	}

	return serve(ctx)
}

func (d *Daemon) startResync(ctx context.Context) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(d.logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		cron.WithLogger(cronLogger),
	)
	if _, err := c.AddFunc(d.cfg.ResyncSchedule, func() { d.resync(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule resync %q: %w", d.cfg.ResyncSchedule, err)
	}
	c.Start()
	d.logger.Info("resync scheduled", "schedule", d.cfg.ResyncSchedule)
	return c, nil
}

// resync reloads lists and cards. On failure the previous cache stays.
func (d *Daemon) resync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := d.board.Init(ctx); err != nil {
		d.logger.Error("board resync failed", "err", err)
		return
	}
	d.logger.Debug("board resynced")
}
