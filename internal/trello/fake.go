package trello

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Trello board implementing the same methods as
// Client. It records every call for verification in tests.
type Fake struct {
	mu sync.Mutex

	BoardID string

	// Errors makes the named method (e.g. "MoveCard") fail.
	Errors map[string]error

	// Calls holds the method names invoked, in order.
	Calls []string

	nextID   int
	lists    []List
	cards    []Card
	labels   map[string]string          // card id -> label colour
	comments map[string][]CommentAction // card id -> newest first
	now      time.Time
}

func NewFake(boardID string) *Fake {
	return &Fake{
		BoardID:  boardID,
		Errors:   make(map[string]error),
		labels:   make(map[string]string),
		comments: make(map[string][]CommentAction),
		now:      time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// newID returns a 24 character hex id, the shape of real Trello ids.
func (f *Fake) newID() string {
	f.nextID++
	return fmt.Sprintf("%024x", f.nextID)
}

func (f *Fake) record(method string) error {
	f.Calls = append(f.Calls, method)
	return f.Errors[method]
}

// AddList seeds a list without recording a call.
func (f *Fake) AddList(name string, closed bool) List {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := List{ID: f.newID(), Name: name, Closed: closed, IDBoard: f.BoardID}
	f.lists = append(f.lists, l)
	return l
}

// AddCard seeds a card without recording a call.
func (f *Fake) AddCard(listID, name string) Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := Card{ID: f.newID(), Name: name, IDList: listID}
	f.cards = append(f.cards, c)
	return c
}

// AddCommentAction seeds a comment authored by username without recording
// a call.
func (f *Fake) AddCommentAction(cardID, username, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addComment(cardID, username, text)
}

func (f *Fake) addComment(cardID, username, text string) {
	f.now = f.now.Add(time.Minute)
	a := CommentAction{ID: f.newID(), Type: "commentCard", Date: f.now}
	a.MemberCreator = Member{ID: username, Username: username}
	a.Data.Text = text
	f.comments[cardID] = append([]CommentAction{a}, f.comments[cardID]...)
}

func (f *Fake) Card(id string) (Card, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

func (f *Fake) Label(cardID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labels[cardID]
}

func (f *Fake) Lists() []List {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]List(nil), f.lists...)
}

func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *Fake) BoardLists(_ context.Context, boardID string) ([]List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BoardLists"); err != nil {
		return nil, err
	}
	if boardID != f.BoardID {
		return nil, &APIError{StatusCode: 404, Method: "GET", Path: "/1/boards/" + boardID + "/lists", Message: "board not found"}
	}
	return append([]List(nil), f.lists...), nil
}

func (f *Fake) CreateList(_ context.Context, boardID, name string) (*List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateList"); err != nil {
		return nil, err
	}
	l := List{ID: f.newID(), Name: name, IDBoard: boardID}
	f.lists = append(f.lists, l)
	return &l, nil
}

func (f *Fake) ReopenList(_ context.Context, listID string) (*List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReopenList"); err != nil {
		return nil, err
	}
	for i := range f.lists {
		if f.lists[i].ID == listID {
			f.lists[i].Closed = false
			l := f.lists[i]
			return &l, nil
		}
	}
	return nil, &APIError{StatusCode: 404, Method: "PUT", Path: "/1/lists/" + listID + "/closed"}
}

func (f *Fake) ListCards(_ context.Context, listID string) ([]Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCards"); err != nil {
		return nil, err
	}
	var cards []Card
	for _, c := range f.cards {
		if c.IDList == listID && !c.Closed {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

func (f *Fake) CreateCard(_ context.Context, listID, name, desc string) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCard"); err != nil {
		return nil, err
	}
	c := Card{ID: f.newID(), Name: name, Desc: desc, IDList: listID}
	f.cards = append(f.cards, c)
	return &c, nil
}

func (f *Fake) UpdateCard(_ context.Context, cardID string, update CardUpdate) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateCard"); err != nil {
		return nil, err
	}
	c := f.card(cardID)
	if c == nil {
		return nil, &APIError{StatusCode: 404, Method: "PUT", Path: "/1/cards/" + cardID}
	}
	if update.Name != "" {
		c.Name = update.Name
	}
	if update.Desc != "" {
		c.Desc = update.Desc
	}
	if update.Label != "" {
		f.labels[cardID] = update.Label
	}
	out := *c
	return &out, nil
}

func (f *Fake) MoveCard(_ context.Context, cardID, listID string) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("MoveCard"); err != nil {
		return nil, err
	}
	c := f.card(cardID)
	if c == nil {
		return nil, &APIError{StatusCode: 404, Method: "PUT", Path: "/1/cards/" + cardID}
	}
	c.IDList = listID
	out := *c
	return &out, nil
}

func (f *Fake) AddComment(_ context.Context, cardID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddComment"); err != nil {
		return err
	}
	if f.card(cardID) == nil {
		return &APIError{StatusCode: 404, Method: "POST", Path: "/1/cards/" + cardID + "/actions/comments"}
	}
	f.addComment(cardID, "review-bridge", text)
	return nil
}

func (f *Fake) CardComments(_ context.Context, cardID string) ([]CommentAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CardComments"); err != nil {
		return nil, err
	}
	return append([]CommentAction(nil), f.comments[cardID]...), nil
}

func (f *Fake) card(id string) *Card {
	for i := range f.cards {
		if f.cards[i].ID == id {
			return &f.cards[i]
		}
	}
	return nil
}
