// Package pathspec provides addresses for repos, lines and line items.
//
// Specs are plain comparable values: two specs with equal fields address the
// same entity and can be copied and discarded freely.
package pathspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cascade-ml/cascade-ui/internal/models"
)

// ErrUnknownLineType is returned when a line address is built with a line
// type that is not one of the known kinds.
var ErrUnknownLineType = errors.New("unknown line type")

// ErrInvalidPath is returned when a textual path cannot be parsed.
var ErrInvalidPath = errors.New("invalid path")

// Pather is implemented by every spec.
type Pather interface {
	// Parts returns the path components from the repo downwards.
	Parts() []string
}

// RepoPathSpec addresses a repo.
type RepoPathSpec struct {
	Repo string `json:"repo"`
}

// RepoSpec returns the address of repo.
func RepoSpec(repo string) RepoPathSpec {
	return RepoPathSpec{Repo: repo}
}

// Parts returns [repo].
func (s RepoPathSpec) Parts() []string {
	return []string{s.Repo}
}

func (s RepoPathSpec) String() string {
	return s.Repo
}

// LinePathSpec addresses a line. The line type is part of the address
// because it decides how the line is displayed and how its items are named.
type LinePathSpec struct {
	RepoPathSpec
	Line     string          `json:"line"`
	LineType models.LineType `json:"line_type"`
}

// LineSpec returns the address of a line. It fails when lineType is not a
// known line type; callers take it from the repo's line summary.
func LineSpec(repo, line string, lineType models.LineType) (LinePathSpec, error) {
	if !lineType.Valid() {
		return LinePathSpec{}, fmt.Errorf("%w: %q for %s/%s", ErrUnknownLineType, lineType, repo, line)
	}
	return LinePathSpec{RepoPathSpec: RepoSpec(repo), Line: line, LineType: lineType}, nil
}

// MustLineSpec is like LineSpec but panics on an unknown line type.
func MustLineSpec(repo, line string, lineType models.LineType) LinePathSpec {
	s, err := LineSpec(repo, line, lineType)
	if err != nil {
		panic(err)
	}
	return s
}

// LineSpecFromSummary addresses a line listed in a repo.
func LineSpecFromSummary(repo string, summary models.LineSummary) (LinePathSpec, error) {
	return LineSpec(repo, summary.Name, summary.Type)
}

// Parts returns [repo, line].
func (s LinePathSpec) Parts() []string {
	return []string{s.Repo, s.Line}
}

func (s LinePathSpec) String() string {
	return s.Repo + "/" + s.Line
}

// Item returns the address of item num in this line.
func (s LinePathSpec) Item(num string) ModelPathSpec {
	return ModelSpec(s.Repo, s.Line, num)
}

// ModelPathSpec addresses one item of a line: a model by its position in a
// model line or a dataset by its version in a data line. Num is kept as
// given and not normalized.
type ModelPathSpec struct {
	RepoPathSpec
	Line string `json:"line"`
	Num  string `json:"num"`
}

// ModelSpec returns the address of item num of a line.
func ModelSpec(repo, line, num string) ModelPathSpec {
	return ModelPathSpec{RepoPathSpec: RepoSpec(repo), Line: line, Num: num}
}

// Parts returns [repo, line, num].
func (s ModelPathSpec) Parts() []string {
	return []string{s.Repo, s.Line, s.Num}
}

func (s ModelPathSpec) String() string {
	return s.Repo + "/" + s.Line + "/" + s.Num
}

// Index interprets Num as a zero-based model position.
func (s ModelPathSpec) Index() (int, error) {
	n, err := strconv.Atoi(s.Num)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a model index", ErrInvalidPath, s.Num)
	}
	return n, nil
}

// WithLineType returns the address of the line containing the item.
func (s ModelPathSpec) WithLineType(lineType models.LineType) (LinePathSpec, error) {
	return LineSpec(s.Repo, s.Line, lineType)
}

// ParseModelPath parses "repo/line/num".
func ParseModelPath(path string) (ModelPathSpec, error) {
	parts := splitPath(path)
	if len(parts) != 3 {
		return ModelPathSpec{}, fmt.Errorf("%w: %q, want repo/line/num", ErrInvalidPath, path)
	}
	return ModelSpec(parts[0], parts[1], parts[2]), nil
}

// PathParts is a raw path, used where the kind of entity addressed does not
// matter, such as attaching a comment.
type PathParts []string

// Parts returns p.
func (p PathParts) Parts() []string {
	return append([]string(nil), p...)
}

// ParseParts parses "repo", "repo/line" or "repo/line/num" into path parts.
func ParseParts(path string) (PathParts, error) {
	parts := splitPath(path)
	if len(parts) == 0 || len(parts) > 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return parts, nil
}

// NewPathParts validates already split path parts: one to three non-empty
// components without slashes.
func NewPathParts(parts []string) (PathParts, error) {
	if len(parts) == 0 || len(parts) > 3 {
		return nil, fmt.Errorf("%w: %d parts", ErrInvalidPath, len(parts))
	}
	for _, p := range parts {
		if p == "" || strings.Contains(p, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, parts)
		}
	}
	return append(PathParts(nil), parts...), nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}
