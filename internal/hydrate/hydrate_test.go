package hydrate

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascade-ml/cascade-ui/internal/models"
)

func TestMergeAppendsNewRowsWithDefaults(t *testing.T) {
	existing := []models.ItemRow{{"slug": "m1"}, {"slug": "m2"}}
	fetched := []models.ItemRow{{"status": "done"}, {"status": "running"}, {"status": "queued"}}

	got := Merge(existing, fetched, []string{"status"})

	want := []models.ItemRow{
		{"slug": "m1", "status": "done"},
		{"slug": "m2", "status": "running"},
		{"status": "queued"},
	}
	assert.Equal(t, want, got)
}

func TestMergeFillsMissingDefaultsOnly(t *testing.T) {
	existing := []models.ItemRow{{"slug": "m1", "saved_at": "t1"}}
	fetched := []models.ItemRow{{"loss": 0.4}}

	got := Merge(existing, fetched, []string{"slug", "created_at"})

	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0]["slug"])
	assert.Equal(t, "t1", got[0]["saved_at"])
	assert.Equal(t, 0.4, got[0]["loss"])
	assert.Equal(t, Placeholder, got[0]["created_at"])
}

func TestMergeTruncatesToFetchedLength(t *testing.T) {
	existing := []models.ItemRow{{"slug": "a"}, {"slug": "b"}, {"slug": "c"}}
	got := Merge(existing, []models.ItemRow{{"loss": 1.0}}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, models.ItemRow{"slug": "a", "loss": 1.0}, got[0])
}

func TestMergeEmptyFetchCollapsesTable(t *testing.T) {
	existing := []models.ItemRow{{"slug": "a"}, {"slug": "b"}}
	got := Hydrate(existing, Result{Items: []models.ItemRow{}}, []string{"slug"})
	assert.Empty(t, got)
}

func TestMergeDeepCopiesFetchedValues(t *testing.T) {
	fetched := []models.ItemRow{{"tags": []any{"a"}}}
	got := Merge(nil, fetched, nil)

	got[0]["tags"].([]any)[0] = "changed"
	assert.Equal(t, "a", fetched[0]["tags"].([]any)[0])
}

func TestFieldsDeduplicates(t *testing.T) {
	assert.Equal(t, []string{"slug", "loss", "saved_at"}, Fields("slug", "loss", "slug", "", "saved_at", "loss"))
	assert.Empty(t, Fields())
}

func TestTableDiscardsStaleCompletion(t *testing.T) {
	table := NewTable([]models.ItemRow{{"slug": "m1"}}, []string{"status"})

	first := table.Begin()
	second := table.Begin()

	// The later fetch completes first.
	require.Equal(t, Applied, table.Apply(second, Result{Items: []models.ItemRow{{"loss": 0.2}}}))
	require.Equal(t, Stale, table.Apply(first, Result{Items: []models.ItemRow{{"loss": 0.9}, {"loss": 0.8}}}))

	rows := table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, models.ItemRow{"slug": "m1", "loss": 0.2, "status": ""}, rows[0])
}

func TestTableLateFetchMergesUnwrittenFields(t *testing.T) {
	table := NewTable([]models.ItemRow{{"slug": "m1"}, {"slug": "m2"}}, nil)

	loss := table.Begin()
	acc := table.Begin()

	require.Equal(t, Applied, table.Apply(acc, Result{Items: []models.ItemRow{{"acc": 0.9}, {"acc": 0.8}}}))
	// The earlier fetch carries a field nothing later wrote; it still lands,
	// but cannot change the row count.
	require.Equal(t, Applied, table.Apply(loss, Result{Items: []models.ItemRow{
		{"loss": 0.1, "acc": 0.1}, {"loss": 0.2, "acc": 0.2}, {"loss": 0.3},
	}}))

	want := []models.ItemRow{
		{"slug": "m1", "acc": 0.9, "loss": 0.1},
		{"slug": "m2", "acc": 0.8, "loss": 0.2},
	}
	assert.Equal(t, want, table.Rows())

	// A second late copy of loss is older than the one already merged.
	older := Token{seq: loss.seq}
	assert.Equal(t, Stale, table.Apply(older, Result{Items: []models.ItemRow{{"loss": 9.0}}}))
	assert.Equal(t, 0.1, table.Rows()[0]["loss"])
}

func TestTableAppliesInIssueOrder(t *testing.T) {
	table := NewTable(nil, nil)

	first := table.Begin()
	second := table.Begin()

	assert.Equal(t, Applied, table.Apply(first, Result{Items: []models.ItemRow{{"slug": "a"}}}))
	assert.Equal(t, Applied, table.Apply(second, Result{Items: []models.ItemRow{{"loss": 1.0}}}))
	assert.Equal(t, []models.ItemRow{{"slug": "a", "loss": 1.0}}, table.Rows())
}

func TestTableFailureKeepsRows(t *testing.T) {
	table := NewTable([]models.ItemRow{{"slug": "a"}}, nil)

	tok := table.Begin()
	assert.Equal(t, Failed, table.Apply(tok, Result{Err: errors.New("boom")}))
	assert.Equal(t, []models.ItemRow{{"slug": "a"}}, table.Rows())

	// A failure does not make an older successful fetch stale.
	older := table.Begin()
	newer := table.Begin()
	assert.Equal(t, Failed, table.Apply(newer, Result{Err: errors.New("boom")}))
	assert.Equal(t, Applied, table.Apply(older, Result{Items: []models.ItemRow{{"loss": 2.0}}}))
}

func TestTableResetMakesInflightStale(t *testing.T) {
	table := NewTable([]models.ItemRow{{"slug": "a"}}, nil)
	tok := table.Begin()

	table.Reset([]models.ItemRow{{"slug": "b"}, {"slug": "c"}})

	assert.Equal(t, Stale, table.Apply(tok, Result{Items: []models.ItemRow{}}))
	assert.Equal(t, 2, table.Len())
}

func TestTableConcurrentApply(t *testing.T) {
	table := NewTable(nil, []string{"slug"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		tok := table.Begin()
		go func(tok Token) {
			defer wg.Done()
			table.Apply(tok, Result{Items: []models.ItemRow{{"seq": tok.Seq()}}})
		}(tok)
	}
	wg.Wait()

	rows := table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["slug"])
	assert.Contains(t, rows[0], "seq")
}
