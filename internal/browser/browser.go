// Package browser loads workspace entities from a Provider and keeps line
// item tables hydrated. It owns the request bodies sent to the backend and
// the mapping from backend JSON to models.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cascade-ml/cascade-ui/internal/hydrate"
	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/navigator"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
	"github.com/cascade-ml/cascade-ui/internal/provider"
)

// ErrLineNotFound is returned when a repo does not list the requested line.
var ErrLineNotFound = errors.New("line not found")

// ErrEmptyComment is returned by AddComment for a blank message.
var ErrEmptyComment = errors.New("comment message is empty")

// Browser loads entities through a Provider.
type Browser struct {
	provider provider.Provider
	nav      *navigator.Navigator
	logger   *slog.Logger
	defaults []string
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		b.logger = logger
	}
}

// WithDefaultFields sets the fields every item row carries after hydration.
func WithDefaultFields(fields ...string) Option {
	return func(b *Browser) {
		b.defaults = hydrate.Fields(fields...)
	}
}

// New creates a Browser on top of p.
func New(p provider.Provider, opts ...Option) *Browser {
	b := &Browser{
		provider: p,
		nav:      navigator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "browser")
	return b
}

// Navigator returns the navigator used to dispatch on line types.
func (b *Browser) Navigator() *navigator.Navigator {
	return b.nav
}

// DefaultFields returns the fields filled into every hydrated row.
func (b *Browser) DefaultFields() []string {
	return append([]string(nil), b.defaults...)
}

// call performs req and logs failures. The returned error matches
// provider.ErrNoData whenever the backend gave no data.
func (b *Browser) call(ctx context.Context, req provider.Request) ([]byte, error) {
	data, err := b.provider.Do(ctx, req)
	if err != nil {
		b.logger.Warn("backend call failed", "endpoint", req.Endpoint, "error", err)
		return nil, err
	}
	return data, nil
}

// LoadWorkspace loads the workspace and its repo cards.
func (b *Browser) LoadWorkspace(ctx context.Context) (*models.Workspace, error) {
	data, err := b.call(ctx, provider.Post(provider.EndpointWorkspace, struct{}{}))
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	ws, err := models.DecodeWorkspace(data)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// LoadRepo loads a repo and its line summaries.
func (b *Browser) LoadRepo(ctx context.Context, spec pathspec.RepoPathSpec) (*models.Repo, error) {
	data, err := b.call(ctx, provider.Post(provider.EndpointRepo, repoBody{Repo: spec.Repo}))
	if err != nil {
		return nil, fmt.Errorf("load repo %s: %w", spec, err)
	}
	return models.DecodeRepo(data)
}

// LineSpec looks a line up in its repo and returns its typed address.
func (b *Browser) LineSpec(ctx context.Context, repo, line string) (pathspec.LinePathSpec, error) {
	r, err := b.LoadRepo(ctx, pathspec.RepoSpec(repo))
	if err != nil {
		return pathspec.LinePathSpec{}, err
	}
	summary, ok := r.FindLine(line)
	if !ok {
		return pathspec.LinePathSpec{}, fmt.Errorf("%w: %s/%s", ErrLineNotFound, repo, line)
	}
	return pathspec.LineSpecFromSummary(repo, summary)
}

// LoadLine loads a line with its initial item rows.
func (b *Browser) LoadLine(ctx context.Context, spec pathspec.LinePathSpec) (*models.Line, error) {
	data, err := b.call(ctx, provider.Post(provider.EndpointLine, lineBody{Repo: spec.Repo, Line: spec.Line}))
	if err != nil {
		return nil, fmt.Errorf("load line %s: %w", spec, err)
	}
	line, err := models.DecodeLine(data)
	if err != nil {
		return nil, err
	}
	if line.Type != spec.LineType {
		b.logger.Warn("line type differs from repo listing",
			"line", spec.String(),
			"listed", spec.LineType,
			"loaded", line.Type,
		)
	}
	return line, nil
}

// LoadModel loads the model at spec. Num must be a model index.
func (b *Browser) LoadModel(ctx context.Context, spec pathspec.ModelPathSpec) (*models.Model, error) {
	body, err := newModelBody(spec)
	if err != nil {
		return nil, err
	}
	data, err := b.call(ctx, provider.Post(provider.EndpointModel, body))
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", spec, err)
	}
	return models.DecodeModel(data)
}

// LoadDataset loads the dataset at spec. Num is the dataset version.
func (b *Browser) LoadDataset(ctx context.Context, spec pathspec.ModelPathSpec) (*models.Dataset, error) {
	body := datasetBody{Repo: spec.Repo, Line: spec.Line, Ver: spec.Num}
	data, err := b.call(ctx, provider.Post(provider.EndpointDataset, body))
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", spec, err)
	}
	return models.DecodeDataset(data)
}

// LoadItem loads item num of a line: a *models.Model for model lines and a
// *models.Dataset for data lines.
func (b *Browser) LoadItem(ctx context.Context, spec pathspec.LinePathSpec, num string) (models.Traced, error) {
	target, err := b.nav.Item(spec, num)
	if err != nil {
		return nil, err
	}
	switch target.Name {
	case navigator.ViewModel:
		return b.LoadModel(ctx, spec.Item(num))
	case navigator.ViewDataset:
		return b.LoadDataset(ctx, spec.Item(num))
	}
	return nil, &navigator.UnrecognizedLineTypeError{LineType: spec.LineType, Path: spec.Item(num).String()}
}

// RunConfig loads the run configuration saved with a model.
func (b *Browser) RunConfig(ctx context.Context, spec pathspec.ModelPathSpec) (*models.RunConfig, error) {
	body, err := newModelBody(spec)
	if err != nil {
		return nil, err
	}
	data, err := b.call(ctx, provider.Post(provider.EndpointRunConfig, body))
	if err != nil {
		return nil, fmt.Errorf("load run config %s: %w", spec, err)
	}
	return models.DecodeRunConfig(data)
}

// RunLog loads the run log saved with a model.
func (b *Browser) RunLog(ctx context.Context, spec pathspec.ModelPathSpec) (*models.RunLog, error) {
	body, err := newModelBody(spec)
	if err != nil {
		return nil, err
	}
	data, err := b.call(ctx, provider.Post(provider.EndpointRunLog, body))
	if err != nil {
		return nil, fmt.Errorf("load run log %s: %w", spec, err)
	}
	return models.DecodeRunLog(data)
}

// AddComment attaches message to the entity at path.
func (b *Browser) AddComment(ctx context.Context, path pathspec.Pather, message string) (models.CommentAck, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyComment
	}
	parts := path.Parts()
	data, err := b.call(ctx, provider.Post(provider.EndpointAddComment, commentBody{Comment: message, PathParts: parts}))
	if err != nil {
		return nil, fmt.Errorf("add comment to %s: %w", strings.Join(parts, "/"), err)
	}
	var ack models.CommentAck
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &ack); err != nil {
			return nil, fmt.Errorf("decoding comment ack: %w", err)
		}
	}
	if ack == nil {
		ack = models.CommentAck{}
	}
	b.logger.Info("comment added", "path", strings.Join(parts, "/"))
	return ack, nil
}

// Version loads the backend version info.
func (b *Browser) Version(ctx context.Context) (*models.VersionInfo, error) {
	data, err := b.call(ctx, provider.Get(provider.EndpointVersion))
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	return models.DecodeVersion(data)
}
