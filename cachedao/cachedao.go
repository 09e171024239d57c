// Package cachedao wraps a DAO with a read-through entity cache.
// Entities are encoded with msgpack; any daox.Cache implementation can
// back it. Cache failures degrade to the database, they never fail an
// operation.
package cachedao

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/daox"
)

// Dao is a caching daox.Dao decorator. Get, BatchGet and Exists are
// served from the cache when possible; every mutation invalidates the
// table's cache entries by prefix. Listings and ad-hoc statements pass
// through uncached.
type Dao[T any, ID comparable] struct {
	inner daox.Dao[T, ID]
	cache daox.Cache
	table string
	ttl   time.Duration
}

// Option configures a caching DAO.
type Option func(*config)

type config struct {
	ttl time.Duration
}

// WithTTL sets the expiry of cached entities. Zero, the default, means
// no expiry.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		c.ttl = d
	}
}

// New returns a caching DAO over inner. The table name scopes the cache
// keys and the invalidation prefix.
func New[T any, ID comparable](inner daox.Dao[T, ID], cache daox.Cache, table string, opts ...Option) *Dao[T, ID] {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return &Dao[T, ID]{inner: inner, cache: cache, table: table, ttl: c.ttl}
}

func (d *Dao[T, ID]) key(id ID) daox.CacheKey {
	return daox.CacheKey{Table: d.table, Op: "get", Key: id}
}

func (d *Dao[T, ID]) lookup(ctx context.Context, id ID) *T {
	b, err := d.cache.Get(ctx, d.key(id).String())
	if err != nil || b == nil {
		return nil
	}
	t := new(T)
	if err := msgpack.Unmarshal(b, t); err != nil {
		return nil
	}
	return t
}

func (d *Dao[T, ID]) store(ctx context.Context, id ID, entity *T) {
	b, err := msgpack.Marshal(entity)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, d.key(id).String(), b, d.ttl)
}

func (d *Dao[T, ID]) invalidate(ctx context.Context) {
	_ = d.cache.DeletePrefix(ctx, daox.CacheKey{Table: d.table}.Prefix())
}

// Get implements daox.ReadOnlyDao.
func (d *Dao[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	if t := d.lookup(ctx, id); t != nil {
		return t, nil
	}
	t, err := d.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, id, t)
	return t, nil
}

// BatchGet implements daox.ReadOnlyDao. Cached entities are served
// directly; only the remaining ids hit the database.
func (d *Dao[T, ID]) BatchGet(ctx context.Context, ids []ID) ([]*T, error) {
	out := make([]*T, len(ids))
	var missing []ID
	var missingAt []int
	for i, id := range ids {
		if t := d.lookup(ctx, id); t != nil {
			out[i] = t
			continue
		}
		missing = append(missing, id)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := d.inner.BatchGet(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, t := range loaded {
		out[missingAt[j]] = t
		if t != nil {
			d.store(ctx, missing[j], t)
		}
	}
	return out, nil
}

// List implements daox.ReadOnlyDao. Listings are not cached.
func (d *Dao[T, ID]) List(ctx context.Context, opts daox.ListOptions) ([]*T, error) {
	return d.inner.List(ctx, opts)
}

// Count implements daox.ReadOnlyDao.
func (d *Dao[T, ID]) Count(ctx context.Context, opts daox.ListOptions) (int64, error) {
	return d.inner.Count(ctx, opts)
}

// Exists implements daox.ReadOnlyDao. A cached entity answers without a
// database round trip.
func (d *Dao[T, ID]) Exists(ctx context.Context, id ID) (bool, error) {
	if t := d.lookup(ctx, id); t != nil {
		return true, nil
	}
	return d.inner.Exists(ctx, id)
}

// QuerySQL implements daox.ReadOnlyDao. Ad-hoc statements are not
// cached.
func (d *Dao[T, ID]) QuerySQL(ctx context.Context, query string, args ...any) ([]*T, error) {
	return d.inner.QuerySQL(ctx, query, args...)
}

// Create implements daox.NoUpdateDao.
func (d *Dao[T, ID]) Create(ctx context.Context, entity *T) error {
	if err := d.inner.Create(ctx, entity); err != nil {
		return err
	}
	d.invalidate(ctx)
	return nil
}

// BatchCreate implements daox.NoUpdateDao.
func (d *Dao[T, ID]) BatchCreate(ctx context.Context, entities []*T) error {
	if err := d.inner.BatchCreate(ctx, entities); err != nil {
		return err
	}
	d.invalidate(ctx)
	return nil
}

// Update implements daox.Dao.
func (d *Dao[T, ID]) Update(ctx context.Context, entity *T) error {
	if err := d.inner.Update(ctx, entity); err != nil {
		return err
	}
	d.invalidate(ctx)
	return nil
}

// BatchUpdate implements daox.Dao.
func (d *Dao[T, ID]) BatchUpdate(ctx context.Context, entities []*T) error {
	if err := d.inner.BatchUpdate(ctx, entities); err != nil {
		return err
	}
	d.invalidate(ctx)
	return nil
}

// Delete implements daox.Dao.
func (d *Dao[T, ID]) Delete(ctx context.Context, id ID) error {
	if err := d.inner.Delete(ctx, id); err != nil {
		return err
	}
	d.invalidate(ctx)
	return nil
}

// BatchDelete implements daox.Dao.
func (d *Dao[T, ID]) BatchDelete(ctx context.Context, ids []ID) error {
	if err := d.inner.BatchDelete(ctx, ids); err != nil {
		return err
	}
	d.invalidate(ctx)
	return nil
}

// DeleteWhere implements daox.Dao.
func (d *Dao[T, ID]) DeleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	affected, err := d.inner.DeleteWhere(ctx, where, args...)
	if err != nil {
		return 0, err
	}
	d.invalidate(ctx)
	return affected, nil
}

// ExecSQL implements daox.Dao.
func (d *Dao[T, ID]) ExecSQL(ctx context.Context, query string, args ...any) (int64, error) {
	affected, err := d.inner.ExecSQL(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	d.invalidate(ctx)
	return affected, nil
}

// RunSQL implements daox.Dao. Statements routed to the exec path
// invalidate the cache.
func (d *Dao[T, ID]) RunSQL(ctx context.Context, query string, args ...any) ([]*T, int64, error) {
	rows, affected, err := d.inner.RunSQL(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	if rows == nil {
		d.invalidate(ctx)
	}
	return rows, affected, nil
}
