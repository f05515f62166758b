// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/storage"
)

// fakeClock advances one second per call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestManager(t *testing.T, store storage.Store) (*Manager, *storage.Prefs) {
	t.Helper()
	prefs := storage.NewPrefs(store, zap.NewNop())
	clock := &fakeClock{now: time.Date(2025, 11, 7, 8, 0, 0, 0, time.UTC)}
	m := NewManager(prefs,
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithLogger(zap.NewNop()),
	)
	return m, prefs
}

// =============================================================================
// START NEW
// =============================================================================

func TestManager_StartNewIsEmptyWithDefaultTitle(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))

	conv := m.StartNew()
	assert.Empty(t, conv.Messages)
	assert.Equal(t, model.DefaultTitle, conv.Title)

	// Current pointer written, list untouched.
	stored, ok := prefs.Current()
	require.True(t, ok)
	assert.Equal(t, conv.ID, stored.ID)
	assert.Empty(t, prefs.Conversations())
}

func TestManager_StartNewKeepsPreviousConversation(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))

	m.AppendMessage(model.SenderUser, "Flights to Oslo", nil)
	m.AppendMessage(model.SenderAssistant, "Here are three options", nil)
	before, _ := m.Current()

	m.StartNew()
	m.AppendMessage(model.SenderUser, "Hotels in Bergen", nil)

	list := prefs.Conversations()
	require.Len(t, list, 2)
	var found *model.Conversation
	for i := range list {
		if list[i].ID == before.ID {
			found = &list[i]
		}
	}
	require.NotNil(t, found, "previous conversation missing from list")
	assert.Equal(t, before, *found)
}

// =============================================================================
// APPEND MESSAGE
// =============================================================================

func TestManager_AppendMessageExample(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))

	const text = "Find flights from New York to London on 7 November"
	msg := m.AppendMessage(model.SenderUser, text, nil)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, text, cur.Title)

	list := prefs.Conversations()
	require.Len(t, list, 1)
	require.Len(t, list[0].Messages, 1)
	assert.Equal(t, msg.ID, list[0].Messages[0].ID)
}

func TestManager_AppendMessageGrowsByOneInOrder(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemoryStore(0))

	var ids []string
	for i := 0; i < 10; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAssistant
		}
		msg := m.AppendMessage(sender, fmt.Sprintf("message %d", i), nil)
		ids = append(ids, msg.ID)

		cur, _ := m.Current()
		require.Len(t, cur.Messages, i+1)
	}

	cur, _ := m.Current()
	for i, msg := range cur.Messages {
		assert.Equal(t, ids[i], msg.ID)
		if i > 0 {
			assert.Greater(t, msg.Timestamp, cur.Messages[i-1].Timestamp)
		}
	}
}

func TestManager_LongFirstMessageTruncatesTitle(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemoryStore(0))

	text := "I want a two week trip through Japan in April with stops in Kyoto and Osaka"
	m.AppendMessage(model.SenderUser, text, nil)

	cur, _ := m.Current()
	assert.Equal(t, text[:50]+"...", cur.Title)
}

func TestManager_AppendKeepsTravelData(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))
	data := &model.TravelData{Flights: []model.FlightInfo{{Airline: "KLM", FlightNumber: "KL1001", Stops: 0}}}

	m.AppendMessage(model.SenderUser, "AMS to LHR", nil)
	m.AppendMessage(model.SenderAssistant, "Found one", data)

	data.Flights[0].Airline = "mutated"

	list := prefs.Conversations()
	require.Len(t, list[0].Messages, 2)
	require.True(t, list[0].Messages[1].Data.HasFlights())
	assert.Equal(t, "KLM", list[0].Messages[1].Data.Flights[0].Airline)
}

// =============================================================================
// TOGGLE LIKE
// =============================================================================

func TestManager_ToggleLike(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))
	m.AppendMessage(model.SenderUser, "Rome", nil)
	reply := m.AppendMessage(model.SenderAssistant, "Try Trastevere", nil)

	liked, ok := m.ToggleLike(reply.ID)
	require.True(t, ok)
	assert.True(t, liked)
	assert.True(t, prefs.Conversations()[0].Messages[1].IsLiked())

	liked, ok = m.ToggleLike(reply.ID)
	require.True(t, ok)
	assert.False(t, liked)

	_, ok = m.ToggleLike("nope")
	assert.False(t, ok)
}

func TestManager_ToggleLikeWithoutCurrent(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemoryStore(0))
	_, ok := m.ToggleLike("anything")
	assert.False(t, ok)
}

// =============================================================================
// LOAD BY ID
// =============================================================================

func TestManager_LoadByIDMissChangesNothing(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemoryStore(0))
	m.AppendMessage(model.SenderUser, "Lima", nil)
	before, _ := m.Current()

	_, ok := m.LoadByID("missing")
	assert.False(t, ok)

	after, _ := m.Current()
	assert.Equal(t, before, after)
}

func TestManager_LoadThenSaveDoesNotDuplicate(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))

	m.AppendMessage(model.SenderUser, "first", nil)
	first, _ := m.Current()
	m.StartNew()
	m.AppendMessage(model.SenderUser, "second", nil)

	loaded, ok := m.LoadByID(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, loaded.ID)

	require.NoError(t, m.Save())
	m.AppendMessage(model.SenderAssistant, "reply", nil)

	list := prefs.Conversations()
	require.Len(t, list, 2)
	count := 0
	for _, c := range list {
		if c.ID == first.ID {
			count++
			assert.Len(t, c.Messages, 2)
		}
	}
	assert.Equal(t, 1, count)
}

func TestManager_LoadedCopyIsIndependent(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemoryStore(0))
	m.AppendMessage(model.SenderUser, "Cairo", nil)
	cur, _ := m.Current()

	loaded, ok := m.LoadByID(cur.ID)
	require.True(t, ok)
	loaded.Messages[0].Content = "tampered"

	again, _ := m.Current()
	assert.Equal(t, "Cairo", again.Messages[0].Content)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile(t *testing.T) {
	a := model.Conversation{ID: "a", Title: "A"}
	b := model.Conversation{ID: "b", Title: "B"}
	c := model.Conversation{ID: "c", Title: "C"}
	list := []model.Conversation{a, b}

	out := Reconcile(list, c)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"c", "a", "b"}, ids(out))

	updated := model.Conversation{ID: "b", Title: "B2"}
	out = Reconcile(out, updated)
	assert.Equal(t, []string{"c", "a", "b"}, ids(out))
	assert.Equal(t, "B2", out[2].Title)

	// Input untouched.
	assert.Equal(t, "B", list[1].Title)
}

func TestManager_ReplaceInPlaceKeepsPosition(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))

	m.AppendMessage(model.SenderUser, "older", nil)
	older, _ := m.Current()
	m.StartNew()
	m.AppendMessage(model.SenderUser, "newer", nil)

	_, ok := m.LoadByID(older.ID)
	require.True(t, ok)
	m.AppendMessage(model.SenderAssistant, "follow up", nil)

	list := prefs.Conversations()
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[1].ID, "active conversation should keep its slot")
}

func ids(list []model.Conversation) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestManager_RoundTripAcrossRestart(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	m, _ := newTestManager(t, store)
	m.AppendMessage(model.SenderUser, "Weekend in Lisbon", nil)
	m.AppendMessage(model.SenderAssistant, "Stay in Alfama", &model.TravelData{
		Hotels: []model.HotelInfo{{Name: "Memmo", Rating: "4.7", Amenities: []string{"Pool"}}},
	})
	m.SetDraft("and flights?")
	before, _ := m.Current()

	restarted, _ := newTestManager(t, store)
	after, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, "and flights?", after.Draft)

	list := restarted.Conversations()
	require.Len(t, list, 1)
	assert.Equal(t, before, list[0])
}

func TestManager_SQLiteBackend(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), storage.SQLiteFileName), 0)
	require.NoError(t, err)
	defer store.Close()

	m, prefs := newTestManager(t, store)
	m.AppendMessage(model.SenderUser, "Seoul food tour", nil)
	assert.Len(t, prefs.Conversations(), 1)
}

func TestManager_WriteFailureKeepsMemoryState(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemoryStore(64))

	m.AppendMessage(model.SenderUser, "This message is long enough to blow the tiny quota", nil)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Len(t, cur.Messages, 1)
	assert.ErrorIs(t, m.LastError(), storage.ErrQuotaExceeded)
}

// =============================================================================
// SUPPLEMENTARY OPERATIONS
// =============================================================================

func TestManager_ClearMessages(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))
	assert.False(t, m.ClearMessages())

	m.AppendMessage(model.SenderUser, "Bali", nil)
	require.True(t, m.ClearMessages())

	list := prefs.Conversations()
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Messages)
	assert.Equal(t, model.DefaultTitle, list[0].Title)
}

func TestManager_Search(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))
	m.AppendMessage(model.SenderUser, "Ski trip to Zermatt", nil)
	m.AppendMessage(model.SenderAssistant, "Chalets near the Matterhorn", nil)
	ski, _ := m.Current()
	m.StartNew()
	m.AppendMessage(model.SenderUser, "Beach in Crete", nil)

	hits := m.Search("zermatt")
	require.Len(t, hits, 1)
	assert.Equal(t, ski.ID, hits[0].ID)

	hits = m.Search("MATTERHORN")
	require.Len(t, hits, 1)
	assert.Equal(t, ski.ID, hits[0].ID)

	assert.Empty(t, m.Search("tokyo"))
	assert.Len(t, prefs.Conversations(), 2)
}

func TestManager_ConcurrentSaveAndAppend(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))
	m.StartNew()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			m.AppendMessage(model.SenderUser, "ping", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = m.Save()
		}
	}()
	wg.Wait()

	list := prefs.Conversations()
	require.Len(t, list, 1)
	assert.Len(t, list[0].Messages, 50)
}

func TestManager_SaveSkipsUnlistedEmptyConversation(t *testing.T) {
	m, prefs := newTestManager(t, storage.NewMemoryStore(0))
	m.AppendMessage(model.SenderUser, "first", nil)
	fresh := m.StartNew()

	require.NoError(t, m.Save())
	list := prefs.Conversations()
	require.Len(t, list, 1)
	assert.NotEqual(t, fresh.ID, list[0].ID)

	cur, ok := prefs.Current()
	require.True(t, ok)
	assert.Equal(t, fresh.ID, cur.ID)
}
