package dao

import (
	"context"

	"github.com/syssam/daox"
)

// LoadOne batch-loads one join entity per parent and attaches it. The
// fetch function receives the deduplicated keys extracted from the
// parents and may return the children in any order. Parents whose key
// has no matching child are left untouched; accessing such a join
// should surface as a daox.NotLoadedError in the caller's accessor.
func LoadOne[P, C any, K comparable](
	ctx context.Context,
	parents []*P,
	parentKey func(*P) K,
	fetch func(context.Context, []K) ([]*C, error),
	childKey func(*C) K,
	attach func(*P, *C),
) error {
	if len(parents) == 0 {
		return nil
	}
	children, err := fetch(ctx, dedupKeys(parents, parentKey))
	if err != nil {
		return err
	}
	byKey := make(map[K]*C, len(children))
	for _, c := range children {
		byKey[childKey(c)] = c
	}
	for _, p := range parents {
		if c, ok := byKey[parentKey(p)]; ok {
			attach(p, c)
		}
	}
	return nil
}

// LoadMany batch-loads the join entities of every parent and attaches
// them as a group. Children are grouped by their key in fetch-result
// order; parents with no children receive an empty slice.
func LoadMany[P, C any, K comparable](
	ctx context.Context,
	parents []*P,
	parentKey func(*P) K,
	fetch func(context.Context, []K) ([]*C, error),
	childKey func(*C) K,
	attach func(*P, []*C),
) error {
	if len(parents) == 0 {
		return nil
	}
	children, err := fetch(ctx, dedupKeys(parents, parentKey))
	if err != nil {
		return err
	}
	byKey := make(map[K][]*C, len(parents))
	for _, c := range children {
		k := childKey(c)
		byKey[k] = append(byKey[k], c)
	}
	for _, p := range parents {
		attach(p, byKey[parentKey(p)])
	}
	return nil
}

// Fetcher adapts a read-only DAO's BatchGet for use as a LoadOne or
// LoadMany fetch function, dropping the nil entries BatchGet reports
// for missing keys.
func Fetcher[C any, K comparable](ro daox.ReadOnlyDao[C, K]) func(context.Context, []K) ([]*C, error) {
	return func(ctx context.Context, keys []K) ([]*C, error) {
		rows, err := ro.BatchGet(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make([]*C, 0, len(rows))
		for _, r := range rows {
			if r != nil {
				out = append(out, r)
			}
		}
		return out, nil
	}
}

// dedupKeys extracts the parent keys preserving first-seen order.
func dedupKeys[P any, K comparable](parents []*P, key func(*P) K) []K {
	seen := make(map[K]struct{}, len(parents))
	keys := make([]K, 0, len(parents))
	for _, p := range parents {
		k := key(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
