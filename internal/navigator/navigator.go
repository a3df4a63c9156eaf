// Package navigator maps addresses to the views that display them.
//
// The navigator does not perform navigation; it returns a ViewTarget that the
// caller acts on. Dispatch over line types is closed: a new line type needs
// its own case here.
package navigator

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// ViewName identifies a destination view.
type ViewName string

const (
	ViewWorkspace ViewName = "main"
	ViewRepo      ViewName = "repo"
	ViewModelLine ViewName = "model_line"
	ViewDataLine  ViewName = "data_line"
	ViewModel     ViewName = "model"
	ViewDataset   ViewName = "dataset"
)

// ErrUnrecognizedLineType is matched by every UnrecognizedLineTypeError.
var ErrUnrecognizedLineType = errors.New("unrecognized line type")

// UnrecognizedLineTypeError reports a dispatch on a line type the navigator
// has no view for.
type UnrecognizedLineTypeError struct {
	LineType models.LineType
	Path     string
}

func (e *UnrecognizedLineTypeError) Error() string {
	return fmt.Sprintf("unrecognized line type %q for %s", e.LineType, e.Path)
}

// Is makes errors.Is(err, ErrUnrecognizedLineType) hold.
func (e *UnrecognizedLineTypeError) Is(target error) bool {
	return target == ErrUnrecognizedLineType
}

// ViewTarget is a resolved destination.
type ViewTarget struct {
	Name   ViewName          `json:"name"`
	Params map[string]string `json:"params"`
}

// Path returns the browse-server route that serves the target.
func (t ViewTarget) Path() string {
	esc := url.PathEscape
	switch t.Name {
	case ViewWorkspace:
		return "/api/workspace"
	case ViewRepo:
		return "/api/repos/" + esc(t.Params["repo"])
	case ViewModelLine, ViewDataLine:
		return "/api/repos/" + esc(t.Params["repo"]) + "/lines/" + esc(t.Params["line"])
	case ViewModel:
		return "/api/repos/" + esc(t.Params["repo"]) + "/lines/" + esc(t.Params["line"]) + "/items/" + esc(t.Params["num"])
	case ViewDataset:
		return "/api/repos/" + esc(t.Params["repo"]) + "/lines/" + esc(t.Params["line"]) + "/items/" + esc(t.Params["ver"])
	}
	return ""
}

// Navigator resolves addresses into view targets. It holds no state and is
// safe for concurrent use.
type Navigator struct{}

// New creates a Navigator.
func New() *Navigator {
	return &Navigator{}
}

// Workspace returns the workspace view.
func (n *Navigator) Workspace() ViewTarget {
	return ViewTarget{Name: ViewWorkspace, Params: map[string]string{}}
}

// Repo returns the view of a repo.
func (n *Navigator) Repo(spec pathspec.RepoPathSpec) ViewTarget {
	return ViewTarget{Name: ViewRepo, Params: map[string]string{"repo": spec.Repo}}
}

// Resolve returns the view of a line, chosen by its line type.
func (n *Navigator) Resolve(spec pathspec.LinePathSpec) (ViewTarget, error) {
	params := map[string]string{"repo": spec.Repo, "line": spec.Line}
	switch spec.LineType {
	case models.LineTypeModel:
		return ViewTarget{Name: ViewModelLine, Params: params}, nil
	case models.LineTypeData:
		return ViewTarget{Name: ViewDataLine, Params: params}, nil
	}
	return ViewTarget{}, &UnrecognizedLineTypeError{LineType: spec.LineType, Path: spec.String()}
}

// Item returns the view of item num of a line: a model view for model lines
// and a dataset view, keyed by version, for data lines.
func (n *Navigator) Item(spec pathspec.LinePathSpec, num string) (ViewTarget, error) {
	switch spec.LineType {
	case models.LineTypeModel:
		return ViewTarget{Name: ViewModel, Params: map[string]string{
			"repo": spec.Repo, "line": spec.Line, "num": num,
		}}, nil
	case models.LineTypeData:
		return ViewTarget{Name: ViewDataset, Params: map[string]string{
			"repo": spec.Repo, "line": spec.Line, "ver": num,
		}}, nil
	}
	return ViewTarget{}, &UnrecognizedLineTypeError{LineType: spec.LineType, Path: spec.Item(num).String()}
}
