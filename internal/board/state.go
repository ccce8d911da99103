package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcin-skalski/review-bridge/internal/trello"
)

var (
	// ErrMisconfigured marks configuration errors: missing board id, list
	// ids that do not exist on the board, unknown role keys.
	ErrMisconfigured = errors.New("board misconfigured")

	ErrCardNotFound = errors.New("card not found")
)

// API is the subset of the Trello REST API the board needs. Both
// *trello.Client and *trello.Fake implement it.
type API interface {
	BoardLists(ctx context.Context, boardID string) ([]trello.List, error)
	CreateList(ctx context.Context, boardID, name string) (*trello.List, error)
	ReopenList(ctx context.Context, listID string) (*trello.List, error)
	ListCards(ctx context.Context, listID string) ([]trello.Card, error)
	CreateCard(ctx context.Context, listID, name, desc string) (*trello.Card, error)
	UpdateCard(ctx context.Context, cardID string, update trello.CardUpdate) (*trello.Card, error)
	MoveCard(ctx context.Context, cardID, listID string) (*trello.Card, error)
	AddComment(ctx context.Context, cardID, text string) error
	CardComments(ctx context.Context, cardID string) ([]trello.CommentAction, error)
}

type Options struct {
	BoardID string
	// ListIDs pins roles to explicit list ids. Roles without an entry are
	// resolved by their default name.
	ListIDs map[Role]string
	// ReadOnly resolves roles without creating or reopening lists. Roles
	// with no list stay unresolved.
	ReadOnly bool
}

type Card struct {
	ID     string
	Name   string
	ListID string
	Closed bool
}

type Comment struct {
	Text   string
	Date   time.Time
	Author string
}

type list struct {
	id     string
	name   string
	closed bool
	cards  []Card
}

// State caches the lists and cards of the board by role. The cache is an
// optimization: Trello stays the source of truth and the cache is only
// rebuilt by Init.
type State struct {
	api    API
	opts   Options
	logger *slog.Logger

	mu    sync.RWMutex
	lists map[Role]*list
}

func New(api API, opts Options, logger *slog.Logger) *State {
	return &State{
		api:    api,
		opts:   opts,
		logger: logger.With("board", opts.BoardID),
	}
}

// Init resolves all six roles against the board and loads their cards.
// The previous cache is kept unless every role resolves.
func (s *State) Init(ctx context.Context) error {
	if s.opts.BoardID == "" {
		return fmt.Errorf("%w: no board id configured", ErrMisconfigured)
	}

	remote, err := s.api.BoardLists(ctx, s.opts.BoardID)
	if err != nil {
		return err
	}

	resolved := make([]*list, len(Roles))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range Roles {
		g.Go(func() error {
			l, err := s.resolve(gctx, role, remote)
			if err != nil {
				return fmt.Errorf("resolve %s list: %w", role, err)
			}
			resolved[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lists := make(map[Role]*list, len(Roles))
	for i, role := range Roles {
		if resolved[i] == nil {
			s.logger.Info("list not found, leaving role unresolved", "role", role, "name", role.DefaultName())
			continue
		}
		lists[role] = resolved[i]
		s.logger.Debug("list resolved", "role", role, "list", resolved[i].id, "name", resolved[i].name, "cards", len(resolved[i].cards))
	}

	s.mu.Lock()
	s.lists = lists
	s.mu.Unlock()

	s.logger.Info("board initialized", "lists", len(lists))
	return nil
}

func (s *State) resolve(ctx context.Context, role Role, remote []trello.List) (*list, error) {
	var found *trello.List

	if id, ok := s.opts.ListIDs[role]; ok {
		for i := range remote {
			if remote[i].ID == id {
				found = &remote[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%w: list %s configured for %s not found on board %s", ErrMisconfigured, id, role, s.opts.BoardID)
		}
	} else {
		for i := range remote {
			if remote[i].Name == role.DefaultName() {
				found = &remote[i]
				break
			}
		}
	}

	switch {
	case found == nil && s.opts.ReadOnly:
		return nil, nil
	case found == nil:
		s.logger.Info("creating list", "role", role, "name", role.DefaultName())
		created, err := s.api.CreateList(ctx, s.opts.BoardID, role.DefaultName())
		if err != nil {
			return nil, err
		}
		found = created
	case found.Closed && !s.opts.ReadOnly:
		s.logger.Info("reopening list", "role", role, "list", found.ID, "name", found.Name)
		reopened, err := s.api.ReopenList(ctx, found.ID)
		if err != nil {
			return nil, err
		}
		found = reopened
	}

	remoteCards, err := s.api.ListCards(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	cards := make([]Card, 0, len(remoteCards))
	for _, c := range remoteCards {
		cards = append(cards, fromRemote(c))
	}

	return &list{id: found.ID, name: found.Name, closed: found.Closed, cards: cards}, nil
}

// isCardID reports whether s looks like an opaque Trello id rather than a
// card title.
func isCardID(s string) bool {
	return len(s) == 24 && !strings.Contains(s, "[")
}

// FindCard looks a card up by id or by title. A title matches its own card
// ("[repo] Title" or "[repo] Title (+1)") first; failing that a "[X] rest"
// title matches any card whose name starts with "[X]".
func (s *State) FindCard(nameOrID string) (Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if isCardID(nameOrID) {
		return s.find(func(c Card) bool { return c.ID == nameOrID })
	}

	if card, ok := s.find(func(c Card) bool {
		return c.Name == nameOrID || strings.HasPrefix(c.Name, nameOrID+" (")
	}); ok {
		return card, true
	}

	prefix := nameOrID
	if strings.HasPrefix(nameOrID, "[") {
		if end := strings.Index(nameOrID, "]"); end > 0 {
			prefix = nameOrID[:end+1]
		}
	}
	return s.find(func(c Card) bool { return strings.HasPrefix(c.Name, prefix) })
}

func (s *State) find(match func(Card) bool) (Card, bool) {
	for _, role := range Roles {
		l := s.lists[role]
		if l == nil {
			continue
		}
		for _, c := range l.cards {
			if match(c) {
				return c, true
			}
		}
	}
	return Card{}, false
}

// MoveCard moves a card, found by id or title, to the list of the role and
// updates the cache once Trello has accepted the move.
func (s *State) MoveCard(ctx context.Context, nameOrID string, to Role) error {
	card, ok := s.FindCard(nameOrID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCardNotFound, nameOrID)
	}
	listID, err := s.listID(to)
	if err != nil {
		return err
	}

	if _, err := s.api.MoveCard(ctx, card.ID, listID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lists {
		l.cards = removeCard(l.cards, card.ID)
	}
	card.ListID = listID
	dest := s.lists[to]
	dest.cards = append(dest.cards, card)

	s.logger.Debug("card moved", "card", card.ID, "name", card.Name, "to", to)
	return nil
}

func removeCard(cards []Card, id string) []Card {
	out := cards[:0]
	for _, c := range cards {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// ModifyCard updates card fields on Trello. The cached name is not
// refreshed.
func (s *State) ModifyCard(ctx context.Context, id string, update trello.CardUpdate) error {
	_, err := s.api.UpdateCard(ctx, id, update)
	return err
}

func (s *State) IsCardInList(card Card, role Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.lists[role]
	return l != nil && card.ListID == l.id
}

func (s *State) CreateCard(ctx context.Context, name, desc string, role Role) (Card, error) {
	listID, err := s.listID(role)
	if err != nil {
		return Card{}, err
	}
	created, err := s.api.CreateCard(ctx, listID, name, desc)
	if err != nil {
		return Card{}, err
	}
	card := fromRemote(*created)

	s.mu.Lock()
	s.lists[role].cards = append(s.lists[role].cards, card)
	s.mu.Unlock()
	return card, nil
}

func (s *State) AddComment(ctx context.Context, cardID, text string) error {
	return s.api.AddComment(ctx, cardID, text)
}

// ReadComments returns the comments of a card in the order Trello returns
// them.
func (s *State) ReadComments(ctx context.Context, cardID string) ([]Comment, error) {
	actions, err := s.api.CardComments(ctx, cardID)
	if err != nil {
		return nil, err
	}
	comments := make([]Comment, 0, len(actions))
	for _, a := range actions {
		comments = append(comments, Comment{
			Text:   a.Data.Text,
			Date:   a.Date,
			Author: a.MemberCreator.Username,
		})
	}
	return comments, nil
}

func (s *State) listID(role Role) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.lists[role]
	if l == nil {
		return "", fmt.Errorf("board not initialized: no list for %s", role)
	}
	return l.id, nil
}

type ListSnapshot struct {
	Role   Role
	ID     string
	Name   string
	Closed bool
	Cards  []Card
}

// Snapshot copies the cache, in role order.
func (s *State) Snapshot() []ListSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ListSnapshot, 0, len(s.lists))
	for _, role := range Roles {
		l := s.lists[role]
		if l == nil {
			continue
		}
		out = append(out, ListSnapshot{
			Role:   role,
			ID:     l.id,
			Name:   l.name,
			Closed: l.closed,
			Cards:  append([]Card(nil), l.cards...),
		})
	}
	return out
}

func fromRemote(c trello.Card) Card {
	return Card{ID: c.ID, Name: c.Name, ListID: c.IDList, Closed: c.Closed}
}
