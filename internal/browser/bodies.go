package browser

import (
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// Request bodies, as the backend expects them.

type repoBody struct {
	Repo string `json:"repo"`
}

type lineBody struct {
	Repo string `json:"repo"`
	Line string `json:"line"`
}

// modelBody addresses a model by position; the backend wants num as an int.
type modelBody struct {
	Repo string `json:"repo"`
	Line string `json:"line"`
	Num  int    `json:"num"`
}

func newModelBody(spec pathspec.ModelPathSpec) (modelBody, error) {
	n, err := spec.Index()
	if err != nil {
		return modelBody{}, err
	}
	return modelBody{Repo: spec.Repo, Line: spec.Line, Num: n}, nil
}

type datasetBody struct {
	Repo string `json:"repo"`
	Line string `json:"line"`
	Ver  string `json:"ver"`
}

type itemTableBody struct {
	LinePath   lineBody `json:"line_path"`
	ItemFields []string `json:"item_fields"`
}

type commentBody struct {
	Comment   string   `json:"comment"`
	PathParts []string `json:"path_parts"`
}
