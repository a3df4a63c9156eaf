package navigator

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// **Feature: navigation, Property 1: Totality on known line types**
// *For any* line address with a known line type, Resolve returns a target
// that references the address's repo and line. *For any* other line type
// Resolve fails with ErrUnrecognizedLineType.
func TestPropertyResolveTotalOnKnownTypes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	nav := New()

	properties.Property("known line types resolve to a view of the same line", prop.ForAll(
		func(repo, line string, lineType models.LineType) bool {
			spec := pathspec.MustLineSpec(repo, line, lineType)
			target, err := nav.Resolve(spec)
			if err != nil {
				t.Logf("Resolve(%v) failed: %v", spec, err)
				return false
			}
			if target.Params["repo"] != repo || target.Params["line"] != line {
				return false
			}
			switch lineType {
			case models.LineTypeModel:
				return target.Name == ViewModelLine
			case models.LineTypeData:
				return target.Name == ViewDataLine
			}
			return false
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.OneConstOf(models.LineTypeModel, models.LineTypeData),
	))

	properties.Property("any other line type fails", prop.ForAll(
		func(repo, line, raw string) bool {
			// Built by hand: LineSpec itself refuses unknown types.
			spec := pathspec.LinePathSpec{
				RepoPathSpec: pathspec.RepoSpec(repo),
				Line:         line,
				LineType:     models.LineType(raw),
			}
			target, err := nav.Resolve(spec)
			if !errors.Is(err, ErrUnrecognizedLineType) {
				return false
			}
			var typed *UnrecognizedLineTypeError
			return errors.As(err, &typed) && typed.LineType == models.LineType(raw) && target.Name == ""
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AlphaString().SuchThat(func(s string) bool {
			return !models.LineType(s).Valid()
		}),
	))

	properties.TestingRun(t)
}

func TestItemTargets(t *testing.T) {
	nav := New()

	model, err := nav.Item(pathspec.MustLineSpec("repo", "00000", models.LineTypeModel), "4")
	if err != nil {
		t.Fatalf("Item(model line): %v", err)
	}
	if model.Name != ViewModel || model.Params["num"] != "4" {
		t.Errorf("unexpected model target %+v", model)
	}
	if got, want := model.Path(), "/api/repos/repo/lines/00000/items/4"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	ds, err := nav.Item(pathspec.MustLineSpec("repo", "00001", models.LineTypeData), "0.1.0")
	if err != nil {
		t.Fatalf("Item(data line): %v", err)
	}
	if ds.Name != ViewDataset || ds.Params["ver"] != "0.1.0" {
		t.Errorf("unexpected dataset target %+v", ds)
	}

	bad := pathspec.LinePathSpec{RepoPathSpec: pathspec.RepoSpec("repo"), Line: "x", LineType: "video_line"}
	if _, err := nav.Item(bad, "0"); !errors.Is(err, ErrUnrecognizedLineType) {
		t.Errorf("Item(unknown) err = %v", err)
	}
}

func TestPathEscapesNames(t *testing.T) {
	nav := New()
	target := nav.Repo(pathspec.RepoSpec("my repo"))
	if got, want := target.Path(), "/api/repos/my%20repo"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got := nav.Workspace().Path(); got != "/api/workspace" {
		t.Errorf("workspace Path() = %q", got)
	}
}
