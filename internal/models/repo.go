package models

// LineSummary is the projection of a line shown in a repo listing. It is not
// a hydrated Line; its Type is what addresses to the line are built from.
type LineSummary struct {
	Name      string   `json:"name"`
	Len       int      `json:"len"`
	Type      LineType `json:"type"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Clone returns a deep copy of s.
func (s LineSummary) Clone() LineSummary {
	out := s
	out.Tags = cloneStrings(s.Tags)
	return out
}

// Repo groups lines.
type Repo struct {
	Name     string        `json:"name"`
	Len      int           `json:"len"`
	Lines    []LineSummary `json:"lines"`
	Tags     []string      `json:"tags"`
	Comments []Comment     `json:"comments"`
}

// NewRepo builds a repo that shares no mutable state with raw. Line
// summaries keep the order of raw.Lines.
func NewRepo(raw Repo) *Repo {
	r := raw.Clone()
	return &r
}

// Clone returns a deep copy of r.
func (r Repo) Clone() Repo {
	out := r
	if r.Lines != nil {
		out.Lines = make([]LineSummary, len(r.Lines))
		for i, l := range r.Lines {
			out.Lines[i] = l.Clone()
		}
	}
	out.Tags = cloneStrings(r.Tags)
	out.Comments = cloneComments(r.Comments)
	return out
}

// FindLine returns the summary of the named line.
func (r *Repo) FindLine(name string) (LineSummary, bool) {
	for _, l := range r.Lines {
		if l.Name == name {
			return l.Clone(), true
		}
	}
	return LineSummary{}, false
}
