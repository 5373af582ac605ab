package inmemory

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/researcher/session"
)

func TestCreateSessionIDsAreUniqueWithinSameMillisecond(t *testing.T) {
	t.Parallel()
	store := NewInMemorySessionStore()
	frozen := time.UnixMilli(1_700_000_000_000)
	store.now = func() time.Time { return frozen }

	a := store.CreateSession("user_1", "search_agent_app")
	b := store.CreateSession("user_1", "search_agent_app")

	assert.Equal(t, "user_1_search_agent_app_1700000000000", a.ID)
	assert.Equal(t, "user_1_search_agent_app_1700000000001", b.ID)
	assert.Equal(t, []string{a.ID, b.ID}, store.ListUserSessions("user_1"))
}

func TestCreateSessionDefaultsAppName(t *testing.T) {
	t.Parallel()
	store := NewInMemorySessionStore()
	sess := store.CreateSession("u", "")
	assert.Equal(t, "default", sess.AppName)
	assert.True(t, strings.HasPrefix(sess.ID, "u_default_"))
	assert.Empty(t, sess.History)
	assert.NotNil(t, sess.Metadata)
}

func TestRecentHistoryReturnsLastEntriesInOrder(t *testing.T) {
	t.Parallel()
	store := NewInMemorySessionStore()
	sess := store.CreateSession("user_1", "app")
	for i := 0; i < 15; i++ {
		store.AppendMessage(sess.ID, fmt.Sprintf("m%d", i), session.RoleUser)
	}

	got := store.RecentHistory(sess.ID, 4)
	require.Len(t, got, 4)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("m%d", 11+i), msg.Content)
	}

	assert.Len(t, store.RecentHistory(sess.ID, 0), session.DefaultHistoryLimit)
	assert.Len(t, store.RecentHistory(sess.ID, 100), 15)
}

func TestAppendToUnknownSessionIsIgnored(t *testing.T) {
	t.Parallel()
	store := NewInMemorySessionStore()
	known := store.CreateSession("user_1", "app")
	store.AppendMessage(known.ID, "hello", "")

	require.NotPanics(t, func() { store.AppendMessage("missing", "lost", session.RoleUser) })
	store.SetMetadata("missing", "k", "v")

	assert.Empty(t, store.RecentHistory("missing", 10))
	history := store.RecentHistory(known.ID, 10)
	require.Len(t, history, 1)
	assert.Equal(t, session.DefaultRole, history[0].Role)
	_, ok := store.GetSession("missing")
	assert.False(t, ok)
}

func TestReturnedSessionsAreCopies(t *testing.T) {
	t.Parallel()
	store := NewInMemorySessionStore()
	sess := store.CreateSession("user_1", "app")
	store.AppendMessage(sess.ID, "first", session.RoleUser)
	store.SetMetadata(sess.ID, "model", "m1")

	got, ok := store.GetSession(sess.ID)
	require.True(t, ok)
	got.History[0].Content = "mutated"
	got.Metadata["model"] = "mutated"

	again, _ := store.GetSession(sess.ID)
	assert.Equal(t, "first", again.History[0].Content)
	assert.Equal(t, "m1", again.Metadata["model"])
}

func TestConcurrentCreateAndAppend(t *testing.T) {
	t.Parallel()
	store := NewInMemorySessionStore()
	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := store.CreateSession("user_1", "app")
			ids[i] = sess.ID
			store.AppendMessage(sess.ID, "x", session.RoleUser)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id %s", id)
		seen[id] = struct{}{}
		assert.Len(t, store.RecentHistory(id, 10), 1)
	}
}
