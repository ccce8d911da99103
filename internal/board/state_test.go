package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/review-bridge/internal/trello"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seededBoard returns a fake holding one list per role, named by default.
func seededBoard(t *testing.T) (*trello.Fake, map[Role]trello.List) {
	t.Helper()
	fake := trello.NewFake("board1")
	lists := make(map[Role]trello.List)
	for _, r := range Roles {
		lists[r] = fake.AddList(r.DefaultName(), false)
	}
	return fake, lists
}

func newState(t *testing.T, fake *trello.Fake, ids map[Role]string) *State {
	t.Helper()
	s := New(fake, Options{BoardID: "board1", ListIDs: ids}, discardLogger())
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestInit_RequiresBoard(t *testing.T) {
	fake := trello.NewFake("board1")
	s := New(fake, Options{}, discardLogger())

	err := s.Init(context.Background())
	require.ErrorIs(t, err, ErrMisconfigured)
	assert.Zero(t, fake.CallCount(), "no remote calls without a board")
}

func TestInit_ResolvesByDefaultName(t *testing.T) {
	fake, lists := seededBoard(t)
	fake.AddCard(lists[InProgress].ID, "[repo] First")
	fake.AddCard(lists[Merged].ID, "[repo] Second (+2)")

	s := newState(t, fake, nil)

	snap := s.Snapshot()
	require.Len(t, snap, len(Roles))
	for i, l := range snap {
		assert.Equal(t, Roles[i], l.Role)
		assert.Equal(t, lists[l.Role].ID, l.ID)
	}
	assert.Len(t, snap[InProgress].Cards, 1)
	assert.Len(t, snap[Merged].Cards, 1)
	assert.NotContains(t, fake.Calls, "CreateList")
}

func TestInit_CreatesMissingAndReopensClosed(t *testing.T) {
	fake := trello.NewFake("board1")
	closed := fake.AddList("Blocked", true)
	fake.AddList("In progress", false)

	s := newState(t, fake, nil)

	var created int
	for _, c := range fake.Calls {
		if c == "CreateList" {
			created++
		}
	}
	assert.Equal(t, 4, created)
	assert.Contains(t, fake.Calls, "ReopenList")

	for _, l := range fake.Lists() {
		assert.False(t, l.Closed, "list %s", l.Name)
	}
	snap := s.Snapshot()
	assert.Equal(t, closed.ID, snap[Blocked].ID)
}

func TestInit_ReadOnlyLeavesBoardUntouched(t *testing.T) {
	fake := trello.NewFake("board1")
	closed := fake.AddList("Blocked", true)
	open := fake.AddList("In progress", false)
	fake.AddCard(open.ID, "[repo] First")

	s := New(fake, Options{BoardID: "board1", ReadOnly: true}, discardLogger())
	require.NoError(t, s.Init(context.Background()))

	assert.NotContains(t, fake.Calls, "CreateList")
	assert.NotContains(t, fake.Calls, "ReopenList")
	assert.Len(t, fake.Lists(), 2)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, InProgress, snap[0].Role)
	assert.Len(t, snap[0].Cards, 1)
	assert.Equal(t, Blocked, snap[1].Role)
	assert.Equal(t, closed.ID, snap[1].ID)
	assert.True(t, snap[1].Closed)

	_, err := s.CreateCard(context.Background(), "[repo] Second", "", Reviewed)
	assert.Error(t, err, "unresolved role has no list")
}

func TestInit_ExplicitListIDs(t *testing.T) {
	fake, lists := seededBoard(t)
	custom := fake.AddList("Ship it", false)

	s := newState(t, fake, map[Role]string{Reviewed: custom.ID})

	snap := s.Snapshot()
	assert.Equal(t, custom.ID, snap[Reviewed].ID)
	assert.Equal(t, "Ship it", snap[Reviewed].Name)
	assert.Equal(t, lists[Merged].ID, snap[Merged].ID)
}

func TestInit_UnknownExplicitListID(t *testing.T) {
	fake, _ := seededBoard(t)
	s := New(fake, Options{BoardID: "board1", ListIDs: map[Role]string{Merged: "doesnotexist00000000000000"}}, discardLogger())

	err := s.Init(context.Background())
	require.ErrorIs(t, err, ErrMisconfigured)
	assert.Empty(t, s.Snapshot(), "no partial state retained")
}

func TestInit_FailureKeepsPreviousCache(t *testing.T) {
	fake, lists := seededBoard(t)
	fake.AddCard(lists[InProgress].ID, "[repo] Kept")
	s := newState(t, fake, nil)

	boom := errors.New("boom")
	fake.Errors["ListCards"] = boom

	err := s.Init(context.Background())
	require.ErrorIs(t, err, boom)

	_, ok := s.FindCard("[repo] Kept")
	assert.True(t, ok)
}

func TestFindCard(t *testing.T) {
	fake, lists := seededBoard(t)
	first := fake.AddCard(lists[InProgress].ID, "[alpha] Add feature (+1)")
	second := fake.AddCard(lists[UnderReview].ID, "[beta] Fix bug")
	third := fake.AddCard(lists[UnderReview].ID, "[beta] Other change (0)")
	plain := fake.AddCard(lists[Cancelled].ID, "name")
	s := newState(t, fake, nil)

	tests := []struct {
		name   string
		query  string
		wantID string
		wantOK bool
	}{
		{name: "by id", query: second.ID, wantID: second.ID, wantOK: true},
		{name: "by exact title", query: "[beta] Fix bug", wantID: second.ID, wantOK: true},
		{name: "by title before score", query: "[beta] Other change", wantID: third.ID, wantOK: true},
		{name: "by bracket prefix", query: "[alpha] Unrelated title", wantID: first.ID, wantOK: true},
		{name: "plain prefix", query: "na", wantID: plain.ID, wantOK: true},
		{name: "unknown prefix", query: "[gamma] Anything", wantOK: false},
		{name: "unknown id", query: "ffffffffffffffffffffffff", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, ok := s.FindCard(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, card.ID)
			}
		})
	}
}

func TestFindCard_IDIgnoresBracketPrefix(t *testing.T) {
	fake, lists := seededBoard(t)
	card := fake.AddCard(lists[Reviewed].ID, "[repo] Something")
	s := newState(t, fake, nil)

	got, ok := s.FindCard(card.ID)
	require.True(t, ok)
	assert.Equal(t, "[repo] Something", got.Name)
}

func TestMoveCard_UpdatesCacheOnce(t *testing.T) {
	fake, lists := seededBoard(t)
	card := fake.AddCard(lists[InProgress].ID, "[repo] Move me")
	s := newState(t, fake, nil)

	require.NoError(t, s.MoveCard(context.Background(), "[repo] Move me", UnderReview))

	snap := s.Snapshot()
	assert.Empty(t, snap[InProgress].Cards)
	require.Len(t, snap[UnderReview].Cards, 1)
	assert.Equal(t, card.ID, snap[UnderReview].Cards[0].ID)
	assert.Equal(t, lists[UnderReview].ID, snap[UnderReview].Cards[0].ListID)

	remote, _ := fake.Card(card.ID)
	assert.Equal(t, lists[UnderReview].ID, remote.IDList)

	moved, ok := s.FindCard(card.ID)
	require.True(t, ok)
	assert.True(t, s.IsCardInList(moved, UnderReview))
	assert.False(t, s.IsCardInList(moved, InProgress))

	// moving to the same list keeps exactly one copy
	require.NoError(t, s.MoveCard(context.Background(), card.ID, UnderReview))
	assert.Len(t, s.Snapshot()[UnderReview].Cards, 1)
}

func TestMoveCard_RemoteFailureLeavesCache(t *testing.T) {
	fake, lists := seededBoard(t)
	card := fake.AddCard(lists[InProgress].ID, "[repo] Stay")
	s := newState(t, fake, nil)
	fake.Errors["MoveCard"] = &trello.APIError{StatusCode: 500, Method: "PUT", Path: "/1/cards/" + card.ID}

	err := s.MoveCard(context.Background(), card.ID, Merged)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap[InProgress].Cards, 1)
	assert.Empty(t, snap[Merged].Cards)
}

func TestMoveCard_NotFound(t *testing.T) {
	fake, _ := seededBoard(t)
	s := newState(t, fake, nil)

	err := s.MoveCard(context.Background(), "[nope] Missing", Merged)
	require.ErrorIs(t, err, ErrCardNotFound)
	assert.NotContains(t, fake.Calls, "MoveCard")
}

func TestCreateCard_AddsToCache(t *testing.T) {
	fake, lists := seededBoard(t)
	s := newState(t, fake, nil)

	card, err := s.CreateCard(context.Background(), "[repo] New PR", "desc", InProgress)
	require.NoError(t, err)
	assert.Equal(t, lists[InProgress].ID, card.ListID)

	found, ok := s.FindCard("[repo] New PR")
	require.True(t, ok)
	assert.Equal(t, card.ID, found.ID)
}

func TestModifyCard_DoesNotTouchCache(t *testing.T) {
	fake, lists := seededBoard(t)
	card := fake.AddCard(lists[UnderReview].ID, "[repo] Title")
	s := newState(t, fake, nil)

	require.NoError(t, s.ModifyCard(context.Background(), card.ID, trello.CardUpdate{Name: "[repo] Title (+1)", Label: "orange"}))

	remote, _ := fake.Card(card.ID)
	assert.Equal(t, "[repo] Title (+1)", remote.Name)
	assert.Equal(t, "orange", fake.Label(card.ID))

	cached, _ := s.FindCard(card.ID)
	assert.Equal(t, "[repo] Title", cached.Name)
}

func TestReadComments_KeepsRemoteOrder(t *testing.T) {
	fake, lists := seededBoard(t)
	card := fake.AddCard(lists[UnderReview].ID, "[repo] Title")
	s := newState(t, fake, nil)

	require.NoError(t, s.AddComment(context.Background(), card.ID, "alice: +1"))
	require.NoError(t, s.AddComment(context.Background(), card.ID, "bob: -1"))

	comments, err := s.ReadComments(context.Background(), card.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "bob: -1", comments[0].Text)
	assert.Equal(t, "alice: +1", comments[1].Text)
	assert.True(t, comments[0].Date.After(comments[1].Date))
	assert.Equal(t, "review-bridge", comments[0].Author)
}

func TestParseListIDs(t *testing.T) {
	ids, err := ParseListIDs(map[string]string{"in_progress": "abc", "Under-Review": "def", "merged": ""})
	require.NoError(t, err)
	assert.Equal(t, map[Role]string{InProgress: "abc", UnderReview: "def"}, ids)

	_, err = ParseListIDs(map[string]string{"shipped": "x"})
	require.ErrorIs(t, err, ErrMisconfigured)
}
