package hydrate

import (
	"sort"
	"sync"

	"github.com/cascade-ml/cascade-ui/internal/models"
)

// Token identifies one fetch issued against a Table.
type Token struct {
	seq uint64
}

// Seq returns the sequence number of the fetch.
func (t Token) Seq() uint64 {
	return t.seq
}

// Outcome describes what Apply did with a result.
type Outcome int

const (
	// Applied means the result was merged into the table.
	Applied Outcome = iota
	// Failed means the fetch failed and the table was left as it was.
	Failed
	// Stale means later fetches had already written every field of the
	// result, so nothing was merged.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// Table holds the item rows of one line and serializes merges into them.
//
// Every fetch takes a Token from Begin before it is sent. For each field the
// most recently issued fetch that carried it wins: a slow early fetch cannot
// overwrite a field written by a faster later one, but still fills in the
// fields no later fetch has written. The row count follows the latest
// applied fetch only.
type Table struct {
	mu       sync.Mutex
	rows     []models.ItemRow
	defaults []string
	issued   uint64
	applied  uint64
	reset    uint64
	written  map[string]uint64
}

// NewTable creates a table seeded with a copy of rows. defaults are the
// fields every row must carry once it has been merged.
func NewTable(rows []models.ItemRow, defaults []string) *Table {
	return &Table{
		rows:     models.CloneRows(rows),
		defaults: Fields(defaults...),
		written:  make(map[string]uint64),
	}
}

// Begin issues a token for a new fetch.
func (t *Table) Begin() Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	return Token{seq: t.issued}
}

// Apply merges res into the table as far as tok is still current.
func (t *Table) Apply(tok Token, res Result) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tok.seq <= t.reset {
		return Stale
	}
	if !res.OK() {
		return Failed
	}

	if tok.seq > t.applied {
		t.rows = Merge(t.rows, res.Items, t.defaults)
		t.applied = tok.seq
		for _, f := range resultFields(res.Items) {
			t.written[f] = tok.seq
		}
		return Applied
	}

	var late []string
	for _, f := range resultFields(res.Items) {
		if t.written[f] < tok.seq {
			late = append(late, f)
		}
	}
	if len(late) == 0 {
		return Stale
	}
	for i := 0; i < len(t.rows) && i < len(res.Items); i++ {
		if t.rows[i] == nil {
			t.rows[i] = make(models.ItemRow, len(late))
		}
		for _, f := range late {
			if v, ok := res.Items[i][f]; ok {
				t.rows[i][f] = models.CloneValue(v)
			}
		}
	}
	for _, f := range late {
		t.written[f] = tok.seq
	}
	return Applied
}

// resultFields returns every field carried by any row of items, sorted.
func resultFields(items []models.ItemRow) []string {
	var names []string
	for _, row := range items {
		for f := range row {
			names = append(names, f)
		}
	}
	sort.Strings(names)
	return Fields(names...)
}

// Rows returns a copy of the current rows.
func (t *Table) Rows() []models.ItemRow {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := models.CloneRows(t.rows)
	if rows == nil {
		rows = []models.ItemRow{}
	}
	return rows
}

// Len returns the current number of rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Defaults returns the fields filled with Placeholder on merge.
func (t *Table) Defaults() []string {
	return append([]string(nil), t.defaults...)
}

// Reset replaces the rows, e.g. after the line itself was reloaded. Fetches
// issued before the reset are treated as stale.
func (t *Table) Reset(rows []models.ItemRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = models.CloneRows(rows)
	t.applied = t.issued
	t.reset = t.issued
	clear(t.written)
}
