package models

import (
	"errors"
	"fmt"
)

// LineType discriminates the two kinds of line.
type LineType string

const (
	LineTypeModel LineType = "model_line"
	LineTypeData  LineType = "data_line"
)

// ErrWrongLineType is returned when a typed row view is requested from a
// line of the other kind.
var ErrWrongLineType = errors.New("wrong line type")

// Valid reports whether t is one of the known line types.
func (t LineType) Valid() bool {
	switch t {
	case LineTypeModel, LineTypeData:
		return true
	}
	return false
}

// ParseLineType converts s into a known LineType.
func ParseLineType(s string) (LineType, error) {
	t := LineType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown line type %q", s)
	}
	return t, nil
}

// ItemRow is one row of a line's item table. It is sparse: only fields that
// have been requested so far are present.
type ItemRow map[string]any

// Clone returns a deep copy of r.
func (r ItemRow) Clone() ItemRow {
	if r == nil {
		return nil
	}
	return ItemRow(CloneMap(r))
}

// String returns field as a string, or "" when missing or not a string.
func (r ItemRow) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Strings returns field as a string list. JSON arrays of strings are
// accepted in either decoded form.
func (r ItemRow) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return cloneStrings(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// CloneRows deep-copies a row table.
func CloneRows(rows []ItemRow) []ItemRow {
	if rows == nil {
		return nil
	}
	out := make([]ItemRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// ModelRow is the typed view of an item of a model line.
type ModelRow struct {
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
	SavedAt   string `json:"saved_at"`
}

// DataRow is the typed view of an item of a data line.
type DataRow struct {
	Slug      string   `json:"slug"`
	CreatedAt string   `json:"created_at"`
	SavedAt   string   `json:"saved_at"`
	Tags      []string `json:"tags"`
}

// Line is an ordered collection of saved items inside a repo. The Type field
// selects the row schema of Items.
type Line struct {
	Name       string    `json:"name"`
	Len        int       `json:"len"`
	Type       LineType  `json:"type"`
	CreatedAt  string    `json:"created_at"`
	UpdatedAt  string    `json:"updated_at"`
	Items      []ItemRow `json:"items"`
	ItemFields []string  `json:"item_fields"`
	Tags       []string  `json:"tags"`
	Comments   []Comment `json:"comments"`
	PlotFields []string  `json:"plot_fields"`
}

// NewLine builds a line that shares no mutable state with raw.
func NewLine(raw Line) *Line {
	l := raw.Clone()
	return &l
}

// Clone returns a deep copy of l.
func (l Line) Clone() Line {
	out := l
	out.Items = CloneRows(l.Items)
	out.ItemFields = cloneStrings(l.ItemFields)
	out.Tags = cloneStrings(l.Tags)
	out.Comments = cloneComments(l.Comments)
	out.PlotFields = cloneStrings(l.PlotFields)
	return out
}

// Plottable returns the fields a line can be plotted by, falling back to the
// requestable item fields when the backend sent none.
func (l *Line) Plottable() []string {
	if len(l.PlotFields) > 0 {
		return cloneStrings(l.PlotFields)
	}
	return cloneStrings(l.ItemFields)
}

// ModelRows returns the items of a model line in their typed form.
func (l *Line) ModelRows() ([]ModelRow, error) {
	if l.Type != LineTypeModel {
		return nil, fmt.Errorf("%w: %s is %q, not %q", ErrWrongLineType, l.Name, l.Type, LineTypeModel)
	}
	rows := make([]ModelRow, len(l.Items))
	for i, item := range l.Items {
		rows[i] = ModelRow{
			Slug:      item.String("slug"),
			CreatedAt: item.String("created_at"),
			SavedAt:   item.String("saved_at"),
		}
	}
	return rows, nil
}

// DataRows returns the items of a data line in their typed form.
func (l *Line) DataRows() ([]DataRow, error) {
	if l.Type != LineTypeData {
		return nil, fmt.Errorf("%w: %s is %q, not %q", ErrWrongLineType, l.Name, l.Type, LineTypeData)
	}
	rows := make([]DataRow, len(l.Items))
	for i, item := range l.Items {
		rows[i] = DataRow{
			Slug:      item.String("slug"),
			CreatedAt: item.String("created_at"),
			SavedAt:   item.String("saved_at"),
			Tags:      item.Strings("tags"),
		}
	}
	return rows, nil
}
