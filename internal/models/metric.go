package models

// Direction tells which way a metric improves.
type Direction string

const (
	// DirectionUp means higher values are better.
	DirectionUp Direction = "up"
	// DirectionDown means lower values are better.
	DirectionDown Direction = "down"
	// DirectionNone means the metric has no preferred direction.
	DirectionNone Direction = ""
)

// Metric is a single evaluation result recorded for a model. Metrics are
// produced by the backend and never modified by the client.
type Metric struct {
	Name      string         `json:"name"`
	Value     *float64       `json:"value,omitempty"`
	Dataset   *string        `json:"dataset,omitempty"`
	Split     *string        `json:"split,omitempty"`
	Direction *Direction     `json:"direction,omitempty"`
	Interval  *[2]float64    `json:"interval,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Dir returns the metric direction, DirectionNone when unset.
func (m Metric) Dir() Direction {
	if m.Direction == nil {
		return DirectionNone
	}
	return *m.Direction
}

// Better reports whether a is strictly better than b under m's direction.
// Metrics without a direction or without values never compare as better.
func (m Metric) Better(a, b float64) bool {
	switch m.Dir() {
	case DirectionUp:
		return a > b
	case DirectionDown:
		return a < b
	default:
		return false
	}
}

// Clone returns a deep copy of m.
func (m Metric) Clone() Metric {
	out := m
	if m.Value != nil {
		v := *m.Value
		out.Value = &v
	}
	if m.Dataset != nil {
		v := *m.Dataset
		out.Dataset = &v
	}
	if m.Split != nil {
		v := *m.Split
		out.Split = &v
	}
	if m.Direction != nil {
		v := *m.Direction
		out.Direction = &v
	}
	if m.Interval != nil {
		v := *m.Interval
		out.Interval = &v
	}
	out.Extra = CloneMap(m.Extra)
	return out
}
