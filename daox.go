// Package daox defines layered data-access-object contracts for
// relational databases. The interfaces compose by embedding, from a
// read-only surface up to full CRUD with batch variants, so restricted
// capabilities are enforced at the type level: a ReadOnlyDao simply has
// no mutating methods to call.
package daox

import "context"

// ListOptions narrows and orders a listing without involving a query
// builder. Where is a raw clause fragment (without the WHERE keyword)
// bound with Args; it is passed through to the database as-is.
type ListOptions struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

// ReadOnlyDao is the read-only surface over a single entity type T
// keyed by ID. It cannot mutate data; the restriction is structural,
// not a runtime check.
type ReadOnlyDao[T any, ID comparable] interface {
	// Get returns the entity with the given id, or an error matching
	// ErrNotFound when it does not exist.
	Get(ctx context.Context, id ID) (*T, error)

	// BatchGet returns the entities for the given ids in request order.
	// Missing ids yield nil entries rather than an error.
	BatchGet(ctx context.Context, ids []ID) ([]*T, error)

	// List returns the entities matching the given options.
	List(ctx context.Context, opts ListOptions) ([]*T, error)

	// Count returns the number of entities matching the given options.
	// Ordering and pagination options are ignored.
	Count(ctx context.Context, opts ListOptions) (int64, error)

	// Exists reports whether an entity with the given id exists.
	Exists(ctx context.Context, id ID) (bool, error)

	// QuerySQL runs an ad-hoc row-returning statement and maps the rows
	// to entities. Statements classified as mutations are rejected.
	QuerySQL(ctx context.Context, query string, args ...any) ([]*T, error)
}

// NoUpdateDao extends ReadOnlyDao with insert operations. Entities can
// be created but never modified or removed through this surface.
type NoUpdateDao[T any, ID comparable] interface {
	ReadOnlyDao[T, ID]

	// Create inserts the entity.
	Create(ctx context.Context, entity *T) error

	// BatchCreate inserts the entities in chunks.
	BatchCreate(ctx context.Context, entities []*T) error
}

// Dao is the full CRUD surface.
type Dao[T any, ID comparable] interface {
	NoUpdateDao[T, ID]

	// Update rewrites all mapped columns of the entity identified by
	// its primary key. It returns an error matching ErrNotFound when no
	// row was affected.
	Update(ctx context.Context, entity *T) error

	// BatchUpdate updates the entities one statement each, in chunks.
	BatchUpdate(ctx context.Context, entities []*T) error

	// Delete removes the entity with the given id. It returns an error
	// matching ErrNotFound when no row was affected.
	Delete(ctx context.Context, id ID) error

	// BatchDelete removes the entities with the given ids.
	BatchDelete(ctx context.Context, ids []ID) error

	// DeleteWhere removes all entities matching the raw where clause
	// and returns the number of rows removed. An empty clause removes
	// every row.
	DeleteWhere(ctx context.Context, where string, args ...any) (int64, error)

	// ExecSQL runs an ad-hoc mutating statement and returns the
	// affected-row count. Statements classified as queries are rejected.
	ExecSQL(ctx context.Context, query string, args ...any) (int64, error)

	// RunSQL classifies an ad-hoc statement by its leading keyword and
	// routes it to the query or the exec path. Exactly one of rows and
	// affected is meaningful: rows is non-nil for the query path.
	// Unclassifiable statements take the exec path.
	RunSQL(ctx context.Context, query string, args ...any) (rows []*T, affected int64, err error)
}

type readOnlyDao[T any, ID comparable] struct {
	ReadOnlyDao[T, ID]
}

// ReadOnly restricts a DAO to its read operations. The returned value
// cannot be type-asserted back to a mutating surface.
func ReadOnly[T any, ID comparable](d ReadOnlyDao[T, ID]) ReadOnlyDao[T, ID] {
	return readOnlyDao[T, ID]{d}
}

type noUpdateDao[T any, ID comparable] struct {
	NoUpdateDao[T, ID]
}

// NoUpdate restricts a DAO to read and insert operations. The returned
// value cannot be type-asserted back to the full Dao surface.
func NoUpdate[T any, ID comparable](d NoUpdateDao[T, ID]) NoUpdateDao[T, ID] {
	return noUpdateDao[T, ID]{d}
}
