// ABOUTME: Expiring LRU of permission evaluators keyed by server and viewer.
// ABOUTME: Lets loading-placeholder polls observe the evaluator mounted by the page that rendered them.

package sessions

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/teamhub/internal/rbac"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 5 * time.Minute
)

// Key identifies one viewer within one server
type Key struct {
	ServerID string
	Viewer   string
}

func (k Key) String() string {
	return k.ServerID + "\x00" + k.Viewer
}

// Factory builds a new evaluator for key
type Factory func(key Key) *rbac.Evaluator

// Stats reports cache effectiveness
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Store caches evaluators. Entries expire ttl after they were created.
type Store struct {
	mu     sync.Mutex
	cache  *lru.LRU[string, *rbac.Evaluator]
	log    *logrus.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a store holding at most size evaluators for ttl each
func New(size int, ttl time.Duration, log *logrus.Logger) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.New()
	}

	s := &Store{log: log}
	s.cache = lru.NewLRU[string, *rbac.Evaluator](size, func(key string, ev *rbac.Evaluator) {
		s.log.WithField("server_id", ev.ServerID()).Debug("evicted permission evaluator")
	}, ttl)
	return s
}

// Acquire returns the cached evaluator for key, creating it with newEval on a miss.
// created is true when the evaluator is new and has not fetched yet.
func (s *Store) Acquire(key Key, newEval Factory) (ev *rbac.Evaluator, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev, ok := s.cache.Get(key.String()); ok {
		s.hits.Add(1)
		return ev, false
	}
	s.misses.Add(1)
	ev = newEval(key)
	s.cache.Add(key.String(), ev)
	return ev, true
}

// Lookup returns the cached evaluator for key without creating one
func (s *Store) Lookup(key Key) (*rbac.Evaluator, bool) {
	ev, ok := s.cache.Get(key.String())
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return ev, ok
}

// Forget drops the evaluator for key
func (s *Store) Forget(key Key) {
	s.cache.Remove(key.String())
}

// ForgetServer drops every evaluator for serverID, e.g. after its roles change
func (s *Store) ForgetServer(serverID string) int {
	prefix := serverID + "\x00"
	n := 0
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) && s.cache.Remove(k) {
			n++
		}
	}
	return n
}

// Len returns the number of cached evaluators
func (s *Store) Len() int {
	return s.cache.Len()
}

// Stats returns hit and miss counters
func (s *Store) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.cache.Len(),
	}
}

// Purge drops every cached evaluator
func (s *Store) Purge() {
	s.cache.Purge()
}
