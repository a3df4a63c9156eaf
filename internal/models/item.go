package models

// FileRef names a file saved alongside a model.
type FileRef struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// Model is the full record of one item of a model line.
type Model struct {
	Traceable
	Slug      string         `json:"slug"`
	Path      string         `json:"path"`
	SavedAt   string         `json:"saved_at"`
	Params    map[string]any `json:"params"`
	Metrics   []Metric       `json:"metrics"`
	Artifacts []FileRef      `json:"artifacts"`
	Files     []FileRef      `json:"files"`
}

// NewModel builds a model that shares no mutable state with raw.
func NewModel(raw Model) *Model {
	m := raw.Clone()
	return &m
}

// Clone returns a deep copy of m.
func (m Model) Clone() Model {
	out := m
	out.Traceable = m.Traceable.Clone()
	out.Params = CloneMap(m.Params)
	if m.Metrics != nil {
		out.Metrics = make([]Metric, len(m.Metrics))
		for i, metric := range m.Metrics {
			out.Metrics[i] = metric.Clone()
		}
	}
	out.Artifacts = cloneFiles(m.Artifacts)
	out.Files = cloneFiles(m.Files)
	return out
}

// Metric returns the first metric called name.
func (m *Model) Metric(name string) (Metric, bool) {
	for _, metric := range m.Metrics {
		if metric.Name == name {
			return metric.Clone(), true
		}
	}
	return Metric{}, false
}

func cloneFiles(files []FileRef) []FileRef {
	if files == nil {
		return nil
	}
	out := make([]FileRef, len(files))
	copy(out, files)
	return out
}

// Dataset is the full record of one version of a data line.
type Dataset struct {
	Traceable
	Name    string `json:"name"`
	Path    string `json:"path"`
	SavedAt string `json:"saved_at"`
}

// NewDataset builds a dataset that shares no mutable state with raw.
func NewDataset(raw Dataset) *Dataset {
	d := raw
	d.Traceable = raw.Traceable.Clone()
	return &d
}

// RunConfig is the configuration a model was trained with.
type RunConfig struct {
	Config    map[string]any `json:"config"`
	Overrides map[string]any `json:"overrides"`
}

// RunLog is the captured output of a training run.
type RunLog struct {
	LogText *string `json:"log_text"`
}

// VersionInfo reports backend component versions.
type VersionInfo struct {
	CoreVersion string `json:"cascade_ml_version"`
	UIVersion   string `json:"cascade_ui_version"`
}
