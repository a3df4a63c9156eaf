package handlers

import (
	"container/list"
	"sync"

	"github.com/cascade-ml/cascade-ui/internal/hydrate"
	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// DefaultMaxTables bounds the number of line tables a registry holds.
const DefaultMaxTables = 256

// TableRegistry keeps the item table of the lines the server has shown,
// so that successive field selections accumulate on the same rows. Once it
// holds limit tables, the least recently used one is dropped.
type TableRegistry struct {
	mu       sync.Mutex
	tables   map[pathspec.LinePathSpec]*list.Element
	order    *list.List
	limit    int
	defaults []string
}

type tableEntry struct {
	spec  pathspec.LinePathSpec
	table *hydrate.Table
}

// NewTableRegistry creates an empty registry holding at most limit tables
// (DefaultMaxTables when limit <= 0). Tables it creates fill defaults into
// every merged row.
func NewTableRegistry(defaults []string, limit int) *TableRegistry {
	if limit <= 0 {
		limit = DefaultMaxTables
	}
	return &TableRegistry{
		tables:   make(map[pathspec.LinePathSpec]*list.Element),
		order:    list.New(),
		limit:    limit,
		defaults: hydrate.Fields(defaults...),
	}
}

// Lookup returns the table of spec, if one exists.
func (tr *TableRegistry) Lookup(spec pathspec.LinePathSpec) (*hydrate.Table, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	el, ok := tr.tables[spec]
	if !ok {
		return nil, false
	}
	tr.order.MoveToFront(el)
	return el.Value.(*tableEntry).table, true
}

// Seed sets the rows of spec's table to those a line was just loaded with,
// creating the table if needed. Fetches in flight for the old rows are
// discarded when they complete.
func (tr *TableRegistry) Seed(spec pathspec.LinePathSpec, rows []models.ItemRow) *hydrate.Table {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if el, ok := tr.tables[spec]; ok {
		tr.order.MoveToFront(el)
		t := el.Value.(*tableEntry).table
		t.Reset(rows)
		return t
	}

	t := hydrate.NewTable(rows, tr.defaults)
	tr.tables[spec] = tr.order.PushFront(&tableEntry{spec: spec, table: t})
	for tr.order.Len() > tr.limit {
		oldest := tr.order.Back()
		tr.order.Remove(oldest)
		delete(tr.tables, oldest.Value.(*tableEntry).spec)
	}
	return t
}

// Forget drops the table of spec.
func (tr *TableRegistry) Forget(spec pathspec.LinePathSpec) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if el, ok := tr.tables[spec]; ok {
		tr.order.Remove(el)
		delete(tr.tables, spec)
	}
}

// Len returns the number of tables held.
func (tr *TableRegistry) Len() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.tables)
}
