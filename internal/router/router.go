package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcin-skalski/review-bridge/internal/github"
)

// Handler handles one event kind per method. *review.Engine implements it.
type Handler interface {
	CommentCreated(ctx context.Context, ev github.Event) error
	PullRequestOpened(ctx context.Context, ev github.Event) error
	PullRequestClosed(ctx context.Context, ev github.Event) error
	PullRequestReopened(ctx context.Context, ev github.Event) error
}

// UnknownSink keeps payloads whose action the router does not handle.
type UnknownSink interface {
	Store(action string, raw []byte) error
}

// Router classifies inbound payloads and hands them to the handler. It
// keeps no state between events.
type Router struct {
	handler Handler
	unknown UnknownSink
	logger  *slog.Logger
}

func New(handler Handler, unknown UnknownSink, logger *slog.Logger) *Router {
	return &Router{handler: handler, unknown: unknown, logger: logger}
}

// Dispatch processes one webhook body to completion. Failures are logged,
// never returned: the sender has already been answered.
func (r *Router) Dispatch(ctx context.Context, deliveryID string, body []byte) {
	logger := r.logger.With("delivery", deliveryID)

	ev, err := github.ParseEvent(body)
	if err != nil {
		if errors.Is(err, github.ErrIncomplete) {
			logger.Info("dropping incomplete payload", "err", err)
		} else {
			logger.Info("dropping malformed payload", "err", err)
		}
		return
	}
	logger = logger.With("action", ev.Action, "repo", ev.Repository)

	switch ev.Kind {
	case github.KindCommentCreated:
		err = r.handler.CommentCreated(ctx, ev)
	case github.KindPullRequestOpened:
		err = r.handler.PullRequestOpened(ctx, ev)
	case github.KindPullRequestClosed:
		err = r.handler.PullRequestClosed(ctx, ev)
	case github.KindPullRequestReopened:
		err = r.handler.PullRequestReopened(ctx, ev)
	default:
		logger.Info("unknown action")
		if r.unknown != nil {
			if err := r.unknown.Store(ev.Action, ev.Raw); err != nil {
				logger.Error("store unknown payload failed", "err", err)
			}
		}
		return
	}

	if err != nil {
		logger.Error("event handling failed", "kind", ev.Kind, "err", err)
		return
	}
	logger.Debug("event handled", "kind", ev.Kind)
}
