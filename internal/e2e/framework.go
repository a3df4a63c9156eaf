// Package e2e provides an end-to-end testing framework for the browsing client.
// It simulates the experiment-tracking backend over HTTP with in-memory repos,
// lines and items, records every call it serves and can inject failures.
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/provider"
)

// BaseFields are the item fields the backend includes in a /v1/line reply.
var BaseFields = []string{"slug", "created_at", "saved_at"}

// TestEnvironment is an in-memory tracking backend.
type TestEnvironment struct {
	mu sync.RWMutex

	WorkspaceName string
	Repos         []*RepoFixture
	Version       models.VersionInfo

	// Event tracking
	Events []Event

	failures map[provider.Endpoint]int
	delays   map[provider.Endpoint]time.Duration
	server   *httptest.Server
}

// RepoFixture is a repo served by the environment.
type RepoFixture struct {
	Name     string
	Tags     []string
	Comments []models.Comment
	Lines    []*LineFixture
}

// LineFixture is a line served by the environment. Rows hold every field of
// every item; the backend projects them onto the requested fields.
type LineFixture struct {
	Name      string
	Type      models.LineType
	CreatedAt string
	UpdatedAt string
	Tags      []string
	Comments  []models.Comment
	Rows      []models.ItemRow
	Models    []models.Model
	Datasets  map[string]models.Dataset
	Configs   map[int]models.RunConfig
	Logs      map[int]string
}

// Event is one backend call served by the environment.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Endpoint  provider.Endpoint
	Details   map[string]interface{}
}

// EventType represents the type of event.
type EventType string

const (
	EventServed       EventType = "served"
	EventFailed       EventType = "failed"
	EventCommentAdded EventType = "comment_added"
)

// NewTestEnvironment creates an empty environment.
func NewTestEnvironment() *TestEnvironment {
	return &TestEnvironment{
		WorkspaceName: "default",
		Version:       models.VersionInfo{CoreVersion: "0.14.0", UIVersion: "0.3.0"},
		Events:        make([]Event, 0),
		failures:      make(map[provider.Endpoint]int),
		delays:        make(map[provider.Endpoint]time.Duration),
	}
}

// Start serves the environment on a local httptest server and returns its URL.
func (env *TestEnvironment) Start() string {
	env.server = httptest.NewServer(env.Router())
	return env.server.URL
}

// Close stops the server started by Start.
func (env *TestEnvironment) Close() {
	if env.server != nil {
		env.server.Close()
	}
}

// Router returns the backend routes.
func (env *TestEnvironment) Router() http.Handler {
	r := chi.NewRouter()
	r.Post(string(provider.EndpointWorkspace), env.handle(provider.EndpointWorkspace, env.workspace))
	r.Post(string(provider.EndpointRepo), env.handle(provider.EndpointRepo, env.repo))
	r.Post(string(provider.EndpointLine), env.handle(provider.EndpointLine, env.line))
	r.Post(string(provider.EndpointLineItemTable), env.handle(provider.EndpointLineItemTable, env.itemTable))
	r.Post(string(provider.EndpointModel), env.handle(provider.EndpointModel, env.model))
	r.Post(string(provider.EndpointDataset), env.handle(provider.EndpointDataset, env.dataset))
	r.Post(string(provider.EndpointRunConfig), env.handle(provider.EndpointRunConfig, env.runConfig))
	r.Post(string(provider.EndpointRunLog), env.handle(provider.EndpointRunLog, env.runLog))
	r.Post(string(provider.EndpointAddComment), env.handle(provider.EndpointAddComment, env.addComment))
	r.Get(string(provider.EndpointVersion), env.handle(provider.EndpointVersion, env.version))
	return r
}

// Fail makes every call to endpoint answer with status until Heal is called.
func (env *TestEnvironment) Fail(endpoint provider.Endpoint, status int) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.failures[endpoint] = status
}

// Heal removes an injected failure.
func (env *TestEnvironment) Heal(endpoint provider.Endpoint) {
	env.mu.Lock()
	defer env.mu.Unlock()
	delete(env.failures, endpoint)
}

// Delay makes calls to endpoint wait d before answering.
func (env *TestEnvironment) Delay(endpoint provider.Endpoint, d time.Duration) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.delays[endpoint] = d
}

// recordEvent records an event in the test environment. Callers hold mu.
func (env *TestEnvironment) recordEvent(eventType EventType, endpoint provider.Endpoint, details map[string]interface{}) {
	env.Events = append(env.Events, Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Endpoint:  endpoint,
		Details:   details,
	})
}

// GetEvents returns all recorded events.
func (env *TestEnvironment) GetEvents() []Event {
	env.mu.RLock()
	defer env.mu.RUnlock()

	events := make([]Event, len(env.Events))
	copy(events, env.Events)
	return events
}

// GetEventsByType returns events filtered by type.
func (env *TestEnvironment) GetEventsByType(eventType EventType) []Event {
	env.mu.RLock()
	defer env.mu.RUnlock()

	var filtered []Event
	for _, e := range env.Events {
		if e.Type == eventType {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Calls returns how many calls to endpoint were served successfully.
func (env *TestEnvironment) Calls(endpoint provider.Endpoint) int {
	n := 0
	for _, e := range env.GetEventsByType(EventServed) {
		if e.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// FindRepo returns the repo fixture called name.
func (env *TestEnvironment) FindRepo(name string) *RepoFixture {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.findRepo(name)
}

func (env *TestEnvironment) findRepo(name string) *RepoFixture {
	for _, r := range env.Repos {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (env *TestEnvironment) findLine(repo, line string) *LineFixture {
	r := env.findRepo(repo)
	if r == nil {
		return nil
	}
	for _, l := range r.Lines {
		if l.Name == line {
			return l
		}
	}
	return nil
}

// errNotFound is returned by route functions for missing entities.
type errNotFound string

func (e errNotFound) Error() string { return string(e) + " not found" }

// routeFunc decodes a request body and returns the reply payload.
type routeFunc func(body json.RawMessage) (any, error)

func (env *TestEnvironment) handle(endpoint provider.Endpoint, fn routeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env.mu.RLock()
		status, failing := env.failures[endpoint]
		delay := env.delays[endpoint]
		env.mu.RUnlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		var body json.RawMessage
		if r.Method == http.MethodPost {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid body", http.StatusUnprocessableEntity)
				return
			}
		}

		if failing {
			env.mu.Lock()
			env.recordEvent(EventFailed, endpoint, map[string]interface{}{"status": status})
			env.mu.Unlock()
			http.Error(w, "injected failure", status)
			return
		}

		reply, err := fn(body)
		if err != nil {
			code := http.StatusUnprocessableEntity
			if _, ok := err.(errNotFound); ok {
				code = http.StatusNotFound
			}
			http.Error(w, err.Error(), code)
			return
		}

		env.mu.Lock()
		env.recordEvent(EventServed, endpoint, map[string]interface{}{"body": string(body)})
		env.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}
}

func (env *TestEnvironment) workspace(json.RawMessage) (any, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()

	cards := make([]models.RepoCard, 0, len(env.Repos))
	for _, r := range env.Repos {
		cards = append(cards, models.RepoCard{Name: r.Name, Len: len(r.Lines), Tags: r.Tags})
	}
	return models.Workspace{
		Name:  env.WorkspaceName,
		Len:   len(cards),
		Repos: models.LoadedRepos(cards),
	}, nil
}

func (env *TestEnvironment) repo(body json.RawMessage) (any, error) {
	var req struct {
		Repo string `json:"repo"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	env.mu.RLock()
	defer env.mu.RUnlock()

	r := env.findRepo(req.Repo)
	if r == nil {
		return nil, errNotFound("repo " + req.Repo)
	}
	out := models.Repo{Name: r.Name, Len: len(r.Lines), Tags: r.Tags, Comments: r.Comments}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, models.LineSummary{
			Name:      l.Name,
			Len:       len(l.Rows),
			Type:      l.Type,
			Tags:      l.Tags,
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		})
	}
	return out, nil
}

type lineRequest struct {
	Repo string `json:"repo"`
	Line string `json:"line"`
}

func (env *TestEnvironment) line(body json.RawMessage) (any, error) {
	var req lineRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	env.mu.RLock()
	defer env.mu.RUnlock()

	l := env.findLine(req.Repo, req.Line)
	if l == nil {
		return nil, errNotFound("line " + req.Repo + "/" + req.Line)
	}
	return models.Line{
		Name:       l.Name,
		Len:        len(l.Rows),
		Type:       l.Type,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
		Items:      project(l.Rows, BaseFields),
		ItemFields: fieldsOf(l.Rows),
		Tags:       l.Tags,
		Comments:   l.Comments,
	}, nil
}

func (env *TestEnvironment) itemTable(body json.RawMessage) (any, error) {
	var req struct {
		LinePath   lineRequest `json:"line_path"`
		ItemFields []string    `json:"item_fields"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	env.mu.RLock()
	defer env.mu.RUnlock()

	l := env.findLine(req.LinePath.Repo, req.LinePath.Line)
	if l == nil {
		return nil, errNotFound("line " + req.LinePath.Repo + "/" + req.LinePath.Line)
	}
	return project(l.Rows, req.ItemFields), nil
}

type modelRequest struct {
	Repo string `json:"repo"`
	Line string `json:"line"`
	Num  int    `json:"num"`
}

func (env *TestEnvironment) lookupModel(body json.RawMessage) (*LineFixture, int, error) {
	var req modelRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, 0, err
	}
	l := env.findLine(req.Repo, req.Line)
	if l == nil || req.Num < 0 || req.Num >= len(l.Models) {
		return nil, 0, errNotFound("model " + req.Repo + "/" + req.Line + "/" + strconv.Itoa(req.Num))
	}
	return l, req.Num, nil
}

func (env *TestEnvironment) model(body json.RawMessage) (any, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()

	l, num, err := env.lookupModel(body)
	if err != nil {
		return nil, err
	}
	return l.Models[num], nil
}

func (env *TestEnvironment) runConfig(body json.RawMessage) (any, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()

	l, num, err := env.lookupModel(body)
	if err != nil {
		return nil, err
	}
	cfg, ok := l.Configs[num]
	if !ok {
		return models.RunConfig{}, nil
	}
	return cfg, nil
}

func (env *TestEnvironment) runLog(body json.RawMessage) (any, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()

	l, num, err := env.lookupModel(body)
	if err != nil {
		return nil, err
	}
	text, ok := l.Logs[num]
	if !ok {
		return models.RunLog{}, nil
	}
	return models.RunLog{LogText: &text}, nil
}

func (env *TestEnvironment) dataset(body json.RawMessage) (any, error) {
	var req struct {
		Repo string `json:"repo"`
		Line string `json:"line"`
		Ver  string `json:"ver"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	env.mu.RLock()
	defer env.mu.RUnlock()

	l := env.findLine(req.Repo, req.Line)
	if l == nil {
		return nil, errNotFound("line " + req.Repo + "/" + req.Line)
	}
	ds, ok := l.Datasets[req.Ver]
	if !ok {
		return nil, errNotFound("dataset " + req.Repo + "/" + req.Line + "/" + req.Ver)
	}
	return ds, nil
}

func (env *TestEnvironment) addComment(body json.RawMessage) (any, error) {
	var req struct {
		Comment   string   `json:"comment"`
		PathParts []string `json:"path_parts"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	c := models.Comment{
		ID:        uuid.NewString(),
		User:      "e2e",
		Host:      "localhost",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   req.Comment,
	}

	switch len(req.PathParts) {
	case 1:
		r := env.findRepo(req.PathParts[0])
		if r == nil {
			return nil, errNotFound("repo " + req.PathParts[0])
		}
		r.Comments = append(r.Comments, c)
	case 2:
		l := env.findLine(req.PathParts[0], req.PathParts[1])
		if l == nil {
			return nil, errNotFound("line " + req.PathParts[0] + "/" + req.PathParts[1])
		}
		l.Comments = append(l.Comments, c)
	case 3:
		l := env.findLine(req.PathParts[0], req.PathParts[1])
		num, err := strconv.Atoi(req.PathParts[2])
		if l == nil || err != nil || num < 0 || num >= len(l.Models) {
			return nil, errNotFound("model " + req.PathParts[0] + "/" + req.PathParts[1] + "/" + req.PathParts[2])
		}
		l.Models[num].Comments = append(l.Models[num].Comments, c)
	default:
		return nil, errNotFound("path")
	}

	env.recordEvent(EventCommentAdded, provider.EndpointAddComment, map[string]interface{}{
		"path":    req.PathParts,
		"comment": req.Comment,
	})
	return map[string]any{"id": c.ID}, nil
}

func (env *TestEnvironment) version(json.RawMessage) (any, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.Version, nil
}

// project keeps only fields of each row. Rows missing a field omit it.
func project(rows []models.ItemRow, fields []string) []models.ItemRow {
	out := make([]models.ItemRow, len(rows))
	for i, row := range rows {
		p := models.ItemRow{}
		for _, f := range fields {
			if v, ok := row[f]; ok {
				p[f] = v
			}
		}
		out[i] = p
	}
	return out
}

func fieldsOf(rows []models.ItemRow) []string {
	seen := map[string]bool{}
	var fields []string
	for _, row := range rows {
		for f := range row {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	sort.Strings(fields)
	return fields
}
