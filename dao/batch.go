package dao

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/daox"
)

// chunks splits items into runs of at most size elements.
func chunks[E any](items []E, size int) [][]E {
	if size <= 0 {
		size = defaultChunkSize
	}
	var out [][]E
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func anyValues[E any](items []E) []any {
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

// OrderByKeys reorders values to match the order of the requested keys.
// Keys with no matching value yield nil entries; duplicate keys share
// the same value.
func OrderByKeys[K comparable, V any](keys []K, values []*V, keyFn func(*V) K) []*V {
	lookup := make(map[K]*V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	out := make([]*V, len(keys))
	for i, k := range keys {
		out[i] = lookup[k]
	}
	return out
}

// BatchGet implements daox.ReadOnlyDao. The ids are fetched in chunks
// running concurrently; results come back in request order, with nil
// entries for missing ids.
func (d *SQL[T, ID]) BatchGet(ctx context.Context, ids []ID) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	groups := chunks(ids, d.chunk)
	results := make([][]*T, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, group := range groups {
		g.Go(func() error {
			query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
				d.cols, d.mapper.Table, d.mapper.IDColumn, d.placeholderList(1, len(group)))
			rows, err := d.queryRows(ctx, query, anyValues(group))
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, daox.NewQueryError(d.mapper.label(), "batch-get", err)
	}
	var all []*T
	for _, rows := range results {
		all = append(all, rows...)
	}
	return OrderByKeys(ids, all, d.mapper.ID), nil
}

// BatchCreate implements daox.NoUpdateDao. Entities are inserted in
// multi-row statements, one per chunk, running concurrently.
func (d *SQL[T, ID]) BatchCreate(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, group := range chunks(entities, d.chunk) {
		g.Go(func() error {
			args := make([]any, 0, len(group)*len(d.mapper.Columns))
			for _, e := range group {
				args = append(args, d.mapper.Values(e)...)
			}
			_, err := d.exec(ctx, d.insertSQL(len(group)), args)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return daox.NewMutationError(d.mapper.label(), "batch-create", err)
	}
	return nil
}

// BatchUpdate implements daox.Dao. Each entity is updated with its own
// statement; statements run concurrently up to the batch concurrency
// limit. Entities whose row no longer exists surface as not-found
// errors.
func (d *SQL[T, ID]) BatchUpdate(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, e := range entities {
		g.Go(func() error {
			return d.Update(ctx, e)
		})
	}
	return g.Wait()
}

// BatchDelete implements daox.Dao. Missing ids are tolerated; only
// driver errors fail the operation.
func (d *SQL[T, ID]) BatchDelete(ctx context.Context, ids []ID) error {
	if len(ids) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, group := range chunks(ids, d.chunk) {
		g.Go(func() error {
			query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
				d.mapper.Table, d.mapper.IDColumn, d.placeholderList(1, len(group)))
			_, err := d.exec(ctx, query, anyValues(group))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return daox.NewMutationError(d.mapper.label(), "batch-delete", err)
	}
	return nil
}
