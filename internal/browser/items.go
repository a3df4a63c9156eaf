package browser

import (
	"context"
	"fmt"

	"github.com/cascade-ml/cascade-ui/internal/hydrate"
	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
	"github.com/cascade-ml/cascade-ui/internal/provider"
)

// FetchLineItems requests the given fields for every item of a line. The
// field set is deduplicated before it is sent. Failures are reported in the
// result rather than returned, so the result can be handed to a hydrator
// as is.
func (b *Browser) FetchLineItems(ctx context.Context, spec pathspec.LinePathSpec, fields ...string) hydrate.Result {
	body := itemTableBody{
		LinePath:   lineBody{Repo: spec.Repo, Line: spec.Line},
		ItemFields: hydrate.Fields(fields...),
	}
	data, err := b.call(ctx, provider.Post(provider.EndpointLineItemTable, body))
	if err != nil {
		return hydrate.Result{Err: fmt.Errorf("fetch items of %s: %w", spec, err)}
	}
	rows, err := models.DecodeItemRows(data)
	if err != nil {
		return hydrate.Result{Err: err}
	}
	return hydrate.Result{Items: rows}
}

// NewTable returns an item table seeded with the rows a line was loaded with.
func (b *Browser) NewTable(line *models.Line) *hydrate.Table {
	var rows []models.ItemRow
	if line != nil {
		rows = line.Items
	}
	return hydrate.NewTable(rows, b.defaults)
}

// HydrateLine fetches fields for a line and merges them into table. The
// table is left unchanged when the fetch fails or when fetches issued later
// have already written every field it returned.
func (b *Browser) HydrateLine(ctx context.Context, spec pathspec.LinePathSpec, table *hydrate.Table, fields ...string) (hydrate.Outcome, error) {
	tok := table.Begin()
	res := b.FetchLineItems(ctx, spec, fields...)
	outcome := table.Apply(tok, res)

	switch outcome {
	case hydrate.Failed:
		b.logger.Warn("item table fetch failed, keeping rows",
			"line", spec.String(),
			"fields", fields,
			"error", res.Err,
		)
		return outcome, res.Err
	case hydrate.Stale:
		b.logger.Debug("discarded stale item table", "line", spec.String(), "seq", tok.Seq())
	default:
		b.logger.Debug("item table hydrated", "line", spec.String(), "rows", table.Len())
	}
	return outcome, nil
}
