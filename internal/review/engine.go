package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcin-skalski/review-bridge/internal/board"
	"github.com/marcin-skalski/review-bridge/internal/github"
	"github.com/marcin-skalski/review-bridge/internal/trello"
)

const (
	labelGreen  = "green"
	labelOrange = "orange"
	labelRed    = "red"

	// reviewedScore is the score at which a pull request counts as reviewed.
	reviewedScore = 2
)

// Board is the board surface the engine drives. *board.State implements it.
type Board interface {
	FindCard(nameOrID string) (board.Card, bool)
	MoveCard(ctx context.Context, nameOrID string, to board.Role) error
	ModifyCard(ctx context.Context, id string, update trello.CardUpdate) error
	IsCardInList(card board.Card, role board.Role) bool
	CreateCard(ctx context.Context, name, desc string, role board.Role) (board.Card, error)
	AddComment(ctx context.Context, cardID, text string) error
	ReadComments(ctx context.Context, cardID string) ([]board.Comment, error)
}

// Engine turns webhook events into board operations.
type Engine struct {
	board  Board
	logger *slog.Logger
}

func NewEngine(b Board, logger *slog.Logger) *Engine {
	return &Engine{board: b, logger: logger}
}

// decision is where a card goes after a tally.
type decision struct {
	move  bool
	to    board.Role
	label string
}

func (d decision) String() string {
	if !d.move {
		return "stay/" + d.label
	}
	return d.to.String() + "/" + d.label
}

// evaluate applies the review policy to the card's current placement and
// score.
func (e *Engine) evaluate(card board.Card, score float64) decision {
	d := decision{label: labelOrange}

	if e.board.IsCardInList(card, board.InProgress) {
		d.move, d.to = true, board.UnderReview
	}

	switch {
	case score >= reviewedScore:
		d.move, d.to, d.label = true, board.Reviewed, labelGreen
	case score < 0:
		d.move, d.to, d.label = true, board.Blocked, labelRed
	case e.board.IsCardInList(card, board.Blocked):
		d.move, d.to = true, board.UnderReview
	}

	return d
}

func cardTitle(repo, title string) string {
	return fmt.Sprintf("[%s] %s", repo, title)
}

func (e *Engine) CommentCreated(ctx context.Context, ev github.Event) error {
	logger := e.logger.With("repo", ev.Repository, "action", ev.Action)
	if ev.Comment == nil {
		logger.Info("comment event without comment, ignoring")
		return nil
	}
	c := ev.Comment
	title := cardTitle(ev.Repository, c.IssueTitle)
	logger = logger.With("card", title, "sender", c.Sender)

	if !strings.Contains(c.Body, "+1") && !strings.Contains(c.Body, "-1") {
		logger.Info("comment is not a vote", "comment", c.URL)
		return nil
	}

	card, ok := e.board.FindCard(title)
	if !ok {
		logger.Info("no card for commented pull request")
		return nil
	}

	text := fmt.Sprintf("%s: %s\n\n[comment](%s)", c.Sender, c.Body, c.URL)
	if err := e.board.AddComment(ctx, card.ID, text); err != nil {
		return fmt.Errorf("add comment to %s: %w", card.ID, err)
	}

	return e.updateReview(ctx, card, logger)
}

// updateReview re-tallies the card's comments, renames and relabels it and
// moves it to the list its score calls for.
func (e *Engine) updateReview(ctx context.Context, card board.Card, logger *slog.Logger) error {
	comments, err := e.board.ReadComments(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("read comments of %s: %w", card.ID, err)
	}
	if len(comments) == 0 {
		logger.Info("card has no comments")
		return nil
	}

	input := make([]Comment, 0, len(comments))
	for _, c := range comments {
		input = append(input, Comment{Author: c.Author, Text: c.Text})
	}
	res := Tally(input)
	d := e.evaluate(card, res.Score)
	logger.Info("review tallied", "score", res.Score, "votes", len(res.Votes), "decision", d.String())

	var errs []error
	name := WithScore(card.Name, res.Score)
	if err := e.board.ModifyCard(ctx, card.ID, trello.CardUpdate{Name: name, Label: d.label}); err != nil {
		logger.Error("rename card failed", "name", name, "err", err)
		errs = append(errs, fmt.Errorf("rename card %s: %w", card.ID, err))
	}

	if !d.move || e.board.IsCardInList(card, board.Merged) {
		return errors.Join(errs...)
	}
	if err := e.board.MoveCard(ctx, card.ID, d.to); err != nil {
		logger.Error("move card failed", "to", d.to, "err", err)
		errs = append(errs, fmt.Errorf("move card %s: %w", card.ID, err))
	}
	return errors.Join(errs...)
}

func (e *Engine) PullRequestOpened(ctx context.Context, ev github.Event) error {
	logger := e.logger.With("repo", ev.Repository, "action", ev.Action)
	if ev.PullRequest == nil {
		logger.Info("opened event without pull request, ignoring")
		return nil
	}
	pr := ev.PullRequest
	title := cardTitle(ev.Repository, pr.Title)
	desc := fmt.Sprintf("[%s](%s)\n\n%s", pr.URL, pr.URL, pr.Body)

	card, err := e.board.CreateCard(ctx, title, desc, board.InProgress)
	if err != nil {
		return fmt.Errorf("create card %q: %w", title, err)
	}
	logger.Info("card created", "card", card.ID, "name", title, "author", pr.Author)
	return nil
}

func (e *Engine) PullRequestClosed(ctx context.Context, ev github.Event) error {
	if ev.PullRequest == nil {
		e.logger.Info("closed event without pull request, ignoring", "repo", ev.Repository)
		return nil
	}
	to := board.Cancelled
	if ev.PullRequest.Merged {
		to = board.Merged
	}
	return e.move(ctx, ev, to)
}

func (e *Engine) PullRequestReopened(ctx context.Context, ev github.Event) error {
	if ev.PullRequest == nil {
		e.logger.Info("reopened event without pull request, ignoring", "repo", ev.Repository)
		return nil
	}
	return e.move(ctx, ev, board.InProgress)
}

func (e *Engine) move(ctx context.Context, ev github.Event, to board.Role) error {
	title := cardTitle(ev.Repository, ev.PullRequest.Title)
	logger := e.logger.With("repo", ev.Repository, "action", ev.Action, "card", title)

	err := e.board.MoveCard(ctx, title, to)
	if errors.Is(err, board.ErrCardNotFound) {
		logger.Info("no card for pull request")
		return nil
	}
	if trello.IsNotFound(err) {
		logger.Info("card no longer exists on trello", "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("move %q to %s: %w", title, to, err)
	}
	logger.Info("card moved", "to", to)
	return nil
}
