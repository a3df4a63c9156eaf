package models

// Traceable carries the provenance of a recorded entity: who saved it, where,
// with which runtime and git state, and what was said about it afterwards.
// Entities compose it by embedding; every field is taken verbatim from the
// backend payload.
type Traceable struct {
	User                  string    `json:"user"`
	Host                  string    `json:"host"`
	Cwd                   string    `json:"cwd"`
	PythonVersion         string    `json:"python_version"`
	Description           string    `json:"description"`
	Comments              []Comment `json:"comments"`
	Tags                  []string  `json:"tags"`
	GitCommit             *string   `json:"git_commit"`
	GitUncommittedChanges []string  `json:"git_uncommitted_changes"`
	CreatedAt             string    `json:"created_at"`
}

// Traced is implemented by every entity that embeds Traceable.
type Traced interface {
	Provenance() *Traceable
}

// Provenance returns the embedded provenance record.
func (t *Traceable) Provenance() *Traceable {
	return t
}

// Clone returns a deep copy of t.
func (t Traceable) Clone() Traceable {
	out := t
	out.Comments = cloneComments(t.Comments)
	out.Tags = cloneStrings(t.Tags)
	out.GitUncommittedChanges = cloneStrings(t.GitUncommittedChanges)
	if t.GitCommit != nil {
		commit := *t.GitCommit
		out.GitCommit = &commit
	}
	return out
}

// Dirty reports whether the entity was saved from a working tree with
// uncommitted changes.
func (t *Traceable) Dirty() bool {
	return len(t.GitUncommittedChanges) > 0
}
