// Package dao provides a SQL-backed implementation of the daox DAO
// contracts. Entity mapping is declared explicitly through a Mapper
// registered at startup; there is no runtime reflection over entity
// types.
package dao

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for schema.name).
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Mapper declares how the entity type T maps to a table with a primary
// key of type ID. All three accessor functions use the same column
// order as Columns.
type Mapper[T any, ID comparable] struct {
	// Table is the table name.
	Table string
	// Label is the entity label used in error messages.
	// Defaults to Table.
	Label string
	// IDColumn is the primary-key column. It must appear in Columns.
	IDColumn string
	// Columns lists every mapped column, including IDColumn.
	Columns []string
	// Fields returns scan destinations for the entity, one pointer per
	// column in Columns order.
	Fields func(*T) []any
	// Values returns the column values of the entity in Columns order,
	// used for inserts and updates.
	Values func(*T) []any
	// ID returns the primary-key value of the entity.
	ID func(*T) ID
}

// Validate reports whether the mapper is usable.
func (m *Mapper[T, ID]) Validate() error {
	if !isValidIdentifier(m.Table) {
		return fmt.Errorf("dao: invalid table name %q", m.Table)
	}
	if len(m.Columns) == 0 {
		return fmt.Errorf("dao: mapper for table %q has no columns", m.Table)
	}
	for _, c := range m.Columns {
		if !isValidIdentifier(c) {
			return fmt.Errorf("dao: invalid column name %q in table %q", c, m.Table)
		}
	}
	if !slices.Contains(m.Columns, m.IDColumn) {
		return fmt.Errorf("dao: id column %q is not part of the columns of table %q", m.IDColumn, m.Table)
	}
	if m.Fields == nil || m.Values == nil || m.ID == nil {
		return fmt.Errorf("dao: mapper for table %q is missing an accessor function", m.Table)
	}
	return nil
}

func (m *Mapper[T, ID]) label() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Table
}

// idIndex returns the position of IDColumn within Columns.
func (m *Mapper[T, ID]) idIndex() int {
	return slices.Index(m.Columns, m.IDColumn)
}

// registry is the process-wide mapper table. It replaces a reflective
// per-type lookup with explicit registration keyed by a caller-chosen
// stable type key.
var registry = struct {
	sync.RWMutex
	m map[string]any
}{m: make(map[string]any)}

// Register stores the mapper under the given type key, typically at
// package init time. Registering an invalid mapper or reusing a key is
// an error.
func Register[T any, ID comparable](key string, m Mapper[T, ID]) error {
	if err := m.Validate(); err != nil {
		return err
	}
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.m[key]; ok {
		return fmt.Errorf("dao: mapper already registered for key %q", key)
	}
	registry.m[key] = m
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any, ID comparable](key string, m Mapper[T, ID]) {
	if err := Register(key, m); err != nil {
		panic(err)
	}
}

// Lookup returns the mapper registered under the given key. The type
// parameters must match the ones used at registration.
func Lookup[T any, ID comparable](key string) (Mapper[T, ID], bool) {
	registry.RLock()
	defer registry.RUnlock()
	m, ok := registry.m[key].(Mapper[T, ID])
	return m, ok
}

// Unregister removes the mapper registered under the given key.
// It is intended for tests.
func Unregister(key string) {
	registry.Lock()
	defer registry.Unlock()
	delete(registry.m, key)
}
