package cachedao

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/daox"
)

type session struct {
	ID    uuid.UUID
	Token string
}

var _ daox.Dao[session, uuid.UUID] = (*Dao[session, uuid.UUID])(nil)

// memCache is a minimal in-process daox.Cache for tests.
type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{m: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key], nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
		}
	}
	return nil
}

func (c *memCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string][]byte)
	return nil
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// sessionStore is a map-backed daox.Dao that counts database hits.
type sessionStore struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]session
	getCalls int
}

var _ daox.Dao[session, uuid.UUID] = (*sessionStore)(nil)

func newSessionStore(rows ...session) *sessionStore {
	s := &sessionStore{rows: make(map[uuid.UUID]session)}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *sessionStore) Get(_ context.Context, id uuid.UUID) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	r, ok := s.rows[id]
	if !ok {
		return nil, daox.NewNotFoundErrorWithID("Session", id)
	}
	return &r, nil
}

func (s *sessionStore) BatchGet(ctx context.Context, ids []uuid.UUID) ([]*session, error) {
	out := make([]*session, len(ids))
	for i, id := range ids {
		r, err := s.Get(ctx, id)
		if err == nil {
			out[i] = r
		}
	}
	return out, nil
}

func (s *sessionStore) List(context.Context, daox.ListOptions) ([]*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, &r)
	}
	return out, nil
}

func (s *sessionStore) Count(context.Context, daox.ListOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *sessionStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	_, ok := s.rows[id]
	return ok, nil
}

func (s *sessionStore) QuerySQL(context.Context, string, ...any) ([]*session, error) {
	return nil, nil
}

func (s *sessionStore) Create(_ context.Context, e *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = *e
	return nil
}

func (s *sessionStore) BatchCreate(ctx context.Context, es []*session) error {
	for _, e := range es {
		if err := s.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *sessionStore) Update(_ context.Context, e *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.ID]; !ok {
		return daox.NewNotFoundErrorWithID("Session", e.ID)
	}
	s.rows[e.ID] = *e
	return nil
}

func (s *sessionStore) BatchUpdate(ctx context.Context, es []*session) error {
	for _, e := range es {
		if err := s.Update(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *sessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return daox.NewNotFoundErrorWithID("Session", id)
	}
	delete(s.rows, id)
	return nil
}

func (s *sessionStore) BatchDelete(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *sessionStore) DeleteWhere(context.Context, string, ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.rows))
	s.rows = make(map[uuid.UUID]session)
	return n, nil
}

func (s *sessionStore) ExecSQL(context.Context, string, ...any) (int64, error) {
	return 0, nil
}

func (s *sessionStore) RunSQL(_ context.Context, query string, _ ...any) ([]*session, int64, error) {
	if strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return []*session{}, 0, nil
	}
	return nil, 0, nil
}

func (s *sessionStore) gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func TestGetReadThrough(t *testing.T) {
	id := uuid.New()
	store := newSessionStore(session{ID: id, Token: "tok-1"})
	cache := newMemCache()
	d := New[session, uuid.UUID](store, cache, "sessions")

	got, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, 1, store.gets())

	// Second read is served from the cache.
	got, err = d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, 1, store.gets())
}

func TestGetMissNotCached(t *testing.T) {
	store := newSessionStore()
	d := New[session, uuid.UUID](store, newMemCache(), "sessions")

	_, err := d.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, daox.IsNotFound(err))
}

func TestBatchGetPartialHit(t *testing.T) {
	a := session{ID: uuid.New(), Token: "a"}
	b := session{ID: uuid.New(), Token: "b"}
	missing := uuid.New()
	store := newSessionStore(a, b)
	d := New[session, uuid.UUID](store, newMemCache(), "sessions")

	// Warm the cache with a only.
	_, err := d.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, store.gets())

	got, err := d.BatchGet(context.Background(), []uuid.UUID{a.ID, b.ID, missing})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Token)
	assert.Equal(t, "b", got[1].Token)
	assert.Nil(t, got[2])
	// Only b and the missing id reached the store.
	assert.Equal(t, 3, store.gets())
}

func TestExistsUsesCache(t *testing.T) {
	id := uuid.New()
	store := newSessionStore(session{ID: id, Token: "tok"})
	d := New[session, uuid.UUID](store, newMemCache(), "sessions")

	_, err := d.Get(context.Background(), id)
	require.NoError(t, err)

	ok, err := d.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.gets(), "cached entity answers existence")

	ok, err = d.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutationsInvalidate(t *testing.T) {
	id := uuid.New()
	store := newSessionStore(session{ID: id, Token: "old"})
	cache := newMemCache()
	d := New[session, uuid.UUID](store, cache, "sessions")

	_, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, cache.len())

	require.NoError(t, d.Update(context.Background(), &session{ID: id, Token: "new"}))
	assert.Zero(t, cache.len(), "update flushes the table's entries")

	got, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Token)
}

func TestDeleteInvalidates(t *testing.T) {
	id := uuid.New()
	store := newSessionStore(session{ID: id, Token: "tok"})
	cache := newMemCache()
	d := New[session, uuid.UUID](store, cache, "sessions")

	_, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, d.Delete(context.Background(), id))

	_, err = d.Get(context.Background(), id)
	require.Error(t, err)
	assert.True(t, daox.IsNotFound(err), "stale entry must not survive the delete")
}

func TestInvalidatePreservesOtherTables(t *testing.T) {
	id := uuid.New()
	store := newSessionStore(session{ID: id, Token: "tok"})
	cache := newMemCache()
	d := New[session, uuid.UUID](store, cache, "sessions")

	other := daox.CacheKey{Table: "users", Op: "get", Key: 1}
	require.NoError(t, cache.Set(context.Background(), other.String(), []byte("x"), 0))

	_, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, d.Delete(context.Background(), id))

	b, err := cache.Get(context.Background(), other.String())
	require.NoError(t, err)
	assert.NotNil(t, b, "other tables keep their entries")
}

func TestRunSQLInvalidation(t *testing.T) {
	id := uuid.New()
	store := newSessionStore(session{ID: id, Token: "tok"})
	cache := newMemCache()
	d := New[session, uuid.UUID](store, cache, "sessions")

	_, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, cache.len())

	// Query path keeps the cache.
	rows, _, err := d.RunSQL(context.Background(), "SELECT id, token FROM sessions")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Equal(t, 1, cache.len())

	// Exec path flushes it.
	rows, _, err = d.RunSQL(context.Background(), "UPDATE sessions SET token = 'x'")
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Zero(t, cache.len())
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	k := daox.CacheKey{Table: "sessions", Op: "get", Key: 7}
	assert.Equal(t, "sessions:get:7", k.String())
	assert.Equal(t, "sessions:", k.Prefix())
}
