package dao

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/daox"
	"github.com/syssam/daox/dialect"
	"github.com/syssam/daox/dialect/sql"
)

const (
	defaultChunkSize   = 100
	defaultConcurrency = 4
	defaultKindCache   = 512
)

type options struct {
	chunk     int
	workers   int
	kindCache int
}

// Option configures a SQL DAO.
type Option func(*options)

// WithChunkSize sets the maximum number of entities or ids per statement
// in batch operations. Default is 100.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunk = n
		}
	}
}

// WithBatchConcurrency sets how many batch chunks may run concurrently.
// Default is 4.
func WithBatchConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithKindCacheSize sets the size of the LRU cache memoizing statement
// classification, keyed by the SQL string. Default is 512.
func WithKindCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.kindCache = n
		}
	}
}

// SQL implements daox.Dao over a dialect.Driver using an explicit
// Mapper. It is safe for concurrent use.
type SQL[T any, ID comparable] struct {
	drv     dialect.Driver
	mapper  Mapper[T, ID]
	cols    string
	kinds   *lru.Cache[string, sql.StatementKind]
	chunk   int
	workers int
}

// New returns a SQL DAO for the given driver and mapper.
func New[T any, ID comparable](drv dialect.Driver, m Mapper[T, ID], opts ...Option) (*SQL[T, ID], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	o := options{chunk: defaultChunkSize, workers: defaultConcurrency, kindCache: defaultKindCache}
	for _, opt := range opts {
		opt(&o)
	}
	kinds, err := lru.New[string, sql.StatementKind](o.kindCache)
	if err != nil {
		return nil, fmt.Errorf("dao: kind cache: %w", err)
	}
	return &SQL[T, ID]{
		drv:     drv,
		mapper:  m,
		cols:    strings.Join(m.Columns, ", "),
		kinds:   kinds,
		chunk:   o.chunk,
		workers: o.workers,
	}, nil
}

// NewFromRegistry returns a SQL DAO using the mapper registered under
// the given type key.
func NewFromRegistry[T any, ID comparable](drv dialect.Driver, key string, opts ...Option) (*SQL[T, ID], error) {
	m, ok := Lookup[T, ID](key)
	if !ok {
		return nil, fmt.Errorf("dao: no mapper registered for key %q", key)
	}
	return New(drv, m, opts...)
}

// Mapper returns the mapper the DAO was built with.
func (d *SQL[T, ID]) Mapper() Mapper[T, ID] { return d.mapper }

// Driver returns the underlying driver.
func (d *SQL[T, ID]) Driver() dialect.Driver { return d.drv }

// placeholder returns the n-th bind placeholder for the driver dialect
// (1-based for Postgres, positional otherwise).
func (d *SQL[T, ID]) placeholder(n int) string {
	if d.drv.Dialect() == dialect.Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// placeholderList returns count placeholders starting at position start,
// joined with commas.
func (d *SQL[T, ID]) placeholderList(start, count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.placeholder(start + i))
	}
	return b.String()
}

// statementKind classifies an ad-hoc statement, memoized per SQL string.
func (d *SQL[T, ID]) statementKind(query string) sql.StatementKind {
	if k, ok := d.kinds.Get(query); ok {
		return k
	}
	k := sql.LeadingKeyword(query)
	d.kinds.Add(query, k)
	return k
}

// queryRows runs a row-returning statement and maps every row through
// the mapper.
func (d *SQL[T, ID]) queryRows(ctx context.Context, query string, args []any) ([]*T, error) {
	rows := &sql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*T
	for rows.Next() {
		t := new(T)
		if err := rows.Scan(d.mapper.Fields(t)...); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// exec runs a non-row-returning statement and reports the affected-row
// count. Driver errors are translated to daox error types where the
// backend is recognized.
func (d *SQL[T, ID]) exec(ctx context.Context, query string, args []any) (int64, error) {
	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, translateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dao: rows affected: %w", err)
	}
	return affected, nil
}

// Get implements daox.ReadOnlyDao.
func (d *SQL[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.cols, d.mapper.Table, d.mapper.IDColumn, d.placeholder(1))
	rows, err := d.queryRows(ctx, query, []any{id})
	if err != nil {
		return nil, daox.NewQueryError(d.mapper.label(), "get", err)
	}
	switch len(rows) {
	case 0:
		return nil, daox.NewNotFoundErrorWithID(d.mapper.label(), id)
	case 1:
		return rows[0], nil
	default:
		return nil, daox.NewNotSingularErrorWithCount(d.mapper.label(), len(rows))
	}
}

// List implements daox.ReadOnlyDao.
func (d *SQL[T, ID]) List(ctx context.Context, opts daox.ListOptions) ([]*T, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", d.cols, d.mapper.Table)
	if opts.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(opts.Where)
	}
	if opts.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(opts.OrderBy)
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", opts.Offset)
	}
	rows, err := d.queryRows(ctx, b.String(), opts.Args)
	if err != nil {
		return nil, daox.NewQueryError(d.mapper.label(), "list", err)
	}
	return rows, nil
}

// Count implements daox.ReadOnlyDao.
func (d *SQL[T, ID]) Count(ctx context.Context, opts daox.ListOptions) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s", d.mapper.Table)
	if opts.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(opts.Where)
	}
	rows := &sql.Rows{}
	if err := d.drv.Query(ctx, b.String(), opts.Args, rows); err != nil {
		return 0, daox.NewQueryError(d.mapper.label(), "count", err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, daox.NewQueryError(d.mapper.label(), "count", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, daox.NewQueryError(d.mapper.label(), "count", err)
	}
	return n, nil
}

// Exists implements daox.ReadOnlyDao.
func (d *SQL[T, ID]) Exists(ctx context.Context, id ID) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s LIMIT 1",
		d.mapper.Table, d.mapper.IDColumn, d.placeholder(1))
	rows := &sql.Rows{}
	if err := d.drv.Query(ctx, query, []any{id}, rows); err != nil {
		return false, daox.NewQueryError(d.mapper.label(), "exists", err)
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, daox.NewQueryError(d.mapper.label(), "exists", err)
	}
	return found, nil
}

// QuerySQL implements daox.ReadOnlyDao. The statement is classified by
// its leading keyword; statements classified as mutations are rejected
// before touching the database. Unclassifiable statements are allowed
// through, since classification is advisory.
func (d *SQL[T, ID]) QuerySQL(ctx context.Context, query string, args ...any) ([]*T, error) {
	if k := d.statementKind(query); k.Mutation() {
		return nil, daox.NewQueryError(d.mapper.label(), "query-sql",
			fmt.Errorf("statement classified as %s, not a query", k))
	}
	rows, err := d.queryRows(ctx, query, args)
	if err != nil {
		return nil, daox.NewQueryError(d.mapper.label(), "query-sql", err)
	}
	return rows, nil
}

// insertSQL builds a multi-row INSERT for n entities.
func (d *SQL[T, ID]) insertSQL(n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.mapper.Table, d.cols)
	width := len(d.mapper.Columns)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		b.WriteString(d.placeholderList(i*width+1, width))
		b.WriteByte(')')
	}
	return b.String()
}

// Create implements daox.NoUpdateDao. The entity carries its own
// primary key; database-generated keys are not read back.
func (d *SQL[T, ID]) Create(ctx context.Context, entity *T) error {
	if _, err := d.exec(ctx, d.insertSQL(1), d.mapper.Values(entity)); err != nil {
		return daox.NewMutationError(d.mapper.label(), "create", err)
	}
	return nil
}

// Update implements daox.Dao. Every mapped column except the primary
// key is rewritten.
func (d *SQL[T, ID]) Update(ctx context.Context, entity *T) error {
	if len(d.mapper.Columns) < 2 {
		return daox.NewMutationError(d.mapper.label(), "update",
			fmt.Errorf("no updatable columns besides %s", d.mapper.IDColumn))
	}
	var (
		sets  = make([]string, 0, len(d.mapper.Columns)-1)
		args  = make([]any, 0, len(d.mapper.Columns))
		vals  = d.mapper.Values(entity)
		idIdx = d.mapper.idIndex()
		n     = 1
	)
	for i, c := range d.mapper.Columns {
		if i == idIdx {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", c, d.placeholder(n)))
		args = append(args, vals[i])
		n++
	}
	id := d.mapper.ID(entity)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.mapper.Table, strings.Join(sets, ", "), d.mapper.IDColumn, d.placeholder(n))
	args = append(args, id)
	affected, err := d.exec(ctx, query, args)
	if err != nil {
		return daox.NewMutationError(d.mapper.label(), "update", err)
	}
	if affected == 0 {
		return daox.NewNotFoundErrorWithID(d.mapper.label(), id)
	}
	return nil
}

// Delete implements daox.Dao.
func (d *SQL[T, ID]) Delete(ctx context.Context, id ID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.mapper.Table, d.mapper.IDColumn, d.placeholder(1))
	affected, err := d.exec(ctx, query, []any{id})
	if err != nil {
		return daox.NewMutationError(d.mapper.label(), "delete", err)
	}
	if affected == 0 {
		return daox.NewNotFoundErrorWithID(d.mapper.label(), id)
	}
	return nil
}

// DeleteWhere implements daox.Dao. An empty clause removes every row.
func (d *SQL[T, ID]) DeleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	query := "DELETE FROM " + d.mapper.Table
	if where != "" {
		query += " WHERE " + where
	}
	affected, err := d.exec(ctx, query, args)
	if err != nil {
		return 0, daox.NewMutationError(d.mapper.label(), "delete-where", err)
	}
	return affected, nil
}

// ExecSQL implements daox.Dao. Statements classified as queries are
// rejected; unclassifiable statements take the exec path.
func (d *SQL[T, ID]) ExecSQL(ctx context.Context, query string, args ...any) (int64, error) {
	if k := d.statementKind(query); k.Query() {
		return 0, daox.NewMutationError(d.mapper.label(), "exec-sql",
			fmt.Errorf("statement classified as %s, not a mutation", k))
	}
	affected, err := d.exec(ctx, query, args)
	if err != nil {
		return 0, daox.NewMutationError(d.mapper.label(), "exec-sql", err)
	}
	return affected, nil
}

// RunSQL implements daox.Dao, routing the statement by its leading
// keyword: SELECT-class statements run on the query path and return
// mapped rows, everything else runs on the exec path.
func (d *SQL[T, ID]) RunSQL(ctx context.Context, query string, args ...any) ([]*T, int64, error) {
	if d.statementKind(query).Query() {
		rows, err := d.queryRows(ctx, query, args)
		if err != nil {
			return nil, 0, daox.NewQueryError(d.mapper.label(), "run-sql", err)
		}
		if rows == nil {
			rows = []*T{}
		}
		return rows, 0, nil
	}
	affected, err := d.exec(ctx, query, args)
	if err != nil {
		return nil, 0, daox.NewMutationError(d.mapper.label(), "run-sql", err)
	}
	return nil, affected, nil
}
