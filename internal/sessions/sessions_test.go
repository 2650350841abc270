// ABOUTME: Tests for the evaluator session store.
// ABOUTME: Covers get-or-create, per-server invalidation, expiry and eviction.

package sessions

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/2389/teamhub/internal/rbac"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func factory(calls *int) Factory {
	return func(key Key) *rbac.Evaluator {
		*calls++
		return rbac.NewEvaluator(key.ServerID, rbac.FetcherFunc(func(ctx context.Context, serverID string) (rbac.Snapshot, error) {
			return rbac.Snapshot{MaxPermissionLevel: 50}, nil
		}), rbac.WithLogger(quietLogger()))
	}
}

func TestAcquireReusesEvaluator(t *testing.T) {
	s := New(10, time.Minute, quietLogger())
	calls := 0

	key := Key{ServerID: "s1", Viewer: "alice"}
	ev1, created := s.Acquire(key, factory(&calls))
	require.True(t, created)
	require.NoError(t, ev1.Load(context.Background()))

	ev2, created := s.Acquire(key, factory(&calls))
	assert.False(t, created)
	assert.Same(t, ev1, ev2)
	assert.True(t, ev2.IsModerator(), "cached evaluator keeps its snapshot")
	assert.Equal(t, 1, calls)

	other, created := s.Acquire(Key{ServerID: "s1", Viewer: "bob"}, factory(&calls))
	assert.True(t, created)
	assert.NotSame(t, ev1, other)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}

func TestLookup(t *testing.T) {
	s := New(10, time.Minute, quietLogger())
	calls := 0

	_, ok := s.Lookup(Key{ServerID: "s1", Viewer: "alice"})
	assert.False(t, ok)

	ev, _ := s.Acquire(Key{ServerID: "s1", Viewer: "alice"}, factory(&calls))
	got, ok := s.Lookup(Key{ServerID: "s1", Viewer: "alice"})
	assert.True(t, ok)
	assert.Same(t, ev, got)
}

func TestForgetServer(t *testing.T) {
	s := New(10, time.Minute, quietLogger())
	calls := 0

	s.Acquire(Key{ServerID: "s1", Viewer: "alice"}, factory(&calls))
	s.Acquire(Key{ServerID: "s1", Viewer: "bob"}, factory(&calls))
	s.Acquire(Key{ServerID: "s10", Viewer: "alice"}, factory(&calls))

	assert.Equal(t, 2, s.ForgetServer("s1"))
	assert.Equal(t, 1, s.Len())

	_, ok := s.Lookup(Key{ServerID: "s10", Viewer: "alice"})
	assert.True(t, ok, "prefix match must not cross server ids")

	s.Forget(Key{ServerID: "s10", Viewer: "alice"})
	assert.Equal(t, 0, s.Len())
}

func TestEvictionBySize(t *testing.T) {
	s := New(2, time.Minute, quietLogger())
	calls := 0

	s.Acquire(Key{ServerID: "s1", Viewer: "a"}, factory(&calls))
	s.Acquire(Key{ServerID: "s1", Viewer: "b"}, factory(&calls))
	s.Acquire(Key{ServerID: "s1", Viewer: "c"}, factory(&calls))

	assert.Equal(t, 2, s.Len())
	_, ok := s.Lookup(Key{ServerID: "s1", Viewer: "a"})
	assert.False(t, ok, "oldest entry evicted")
}

func TestExpiry(t *testing.T) {
	s := New(10, 20*time.Millisecond, quietLogger())
	calls := 0

	key := Key{ServerID: "s1", Viewer: "alice"}
	s.Acquire(key, factory(&calls))

	assert.Eventually(t, func() bool {
		_, ok := s.Lookup(key)
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, created := s.Acquire(key, factory(&calls))
	assert.True(t, created)
}

func TestConcurrentAcquireCreatesOnce(t *testing.T) {
	s := New(10, time.Minute, quietLogger())
	var mu sync.Mutex
	calls := 0
	f := func(key Key) *rbac.Evaluator {
		mu.Lock()
		calls++
		mu.Unlock()
		return rbac.NewEvaluator(key.ServerID, rbac.FetcherFunc(func(ctx context.Context, serverID string) (rbac.Snapshot, error) {
			return rbac.Snapshot{}, nil
		}))
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Acquire(Key{ServerID: "s1", Viewer: "alice"}, f)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestDefaults(t *testing.T) {
	s := New(0, 0, nil)
	assert.Equal(t, 0, s.Len())
	s.Purge()
}
