package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/navigator"
)

// UserSimulator drives a browse server the way the web UI does: it opens
// views by the routes the server hands back and remembers every page it
// visited.
type UserSimulator struct {
	baseURL string
	client  *http.Client

	mu      sync.Mutex
	visited []string
}

// NewUserSimulator creates a simulator for the browse server at baseURL.
func NewUserSimulator(baseURL string) *UserSimulator {
	return &UserSimulator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// BrowseError is a non-2xx answer from the browse server.
type BrowseError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *BrowseError) Error() string {
	return fmt.Sprintf("browse server returned %d %s: %s", e.Status, e.Code, e.Message)
}

// LineView is what the server returns for a line page.
type LineView struct {
	View navigator.ViewTarget `json:"view"`
	Line *models.Line         `json:"line"`
}

// TableView is the state of a line's item table.
type TableView struct {
	Line    string           `json:"line"`
	Fields  []string         `json:"fields"`
	Outcome string           `json:"outcome"`
	Rows    []models.ItemRow `json:"rows"`
	Error   string           `json:"error"`
}

// Visited returns the paths opened so far.
func (u *UserSimulator) Visited() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.visited...)
}

func (u *UserSimulator) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	u.mu.Lock()
	u.visited = append(u.visited, path)
	u.mu.Unlock()

	if resp.StatusCode >= 300 {
		be := &BrowseError{Status: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(be)
		return be
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Open GETs path and decodes the answer into out.
func (u *UserSimulator) Open(ctx context.Context, path string, out any) error {
	return u.do(ctx, http.MethodGet, path, nil, out)
}

// OpenWorkspace opens the start page.
func (u *UserSimulator) OpenWorkspace(ctx context.Context) (*models.Workspace, error) {
	var ws models.Workspace
	if err := u.Open(ctx, "/api/workspace", &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// ClickRepo opens the repo of a workspace card.
func (u *UserSimulator) ClickRepo(ctx context.Context, card models.RepoCard) (*models.Repo, error) {
	var repo models.Repo
	if err := u.Open(ctx, "/api/repos/"+url.PathEscape(card.Name), &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// ClickLine resolves the view of a line summary, then opens it.
func (u *UserSimulator) ClickLine(ctx context.Context, repo string, line models.LineSummary) (*LineView, error) {
	q := url.Values{"repo": {repo}, "line": {line.Name}, "type": {string(line.Type)}}
	path, err := u.Navigate(ctx, q)
	if err != nil {
		return nil, err
	}
	var view LineView
	if err := u.Open(ctx, path, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Navigate asks the server where an address is displayed.
func (u *UserSimulator) Navigate(ctx context.Context, q url.Values) (string, error) {
	var resp struct {
		View navigator.ViewTarget `json:"view"`
		Path string               `json:"path"`
	}
	if err := u.Open(ctx, "/api/navigate?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// SelectFields adds fields to the item table of the line at linePath.
func (u *UserSimulator) SelectFields(ctx context.Context, linePath string, fields ...string) (*TableView, error) {
	q := url.Values{"fields": {strings.Join(fields, ",")}}
	var table TableView
	if err := u.Open(ctx, linePath+"/items?"+q.Encode(), &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// ClickItem opens item num of the line at linePath and decodes the item
// into out.
func (u *UserSimulator) ClickItem(ctx context.Context, linePath, num string, out any) (navigator.ViewTarget, error) {
	var resp struct {
		View navigator.ViewTarget `json:"view"`
		Item json.RawMessage      `json:"item"`
	}
	if err := u.Open(ctx, linePath+"/items/"+url.PathEscape(num), &resp); err != nil {
		return navigator.ViewTarget{}, err
	}
	if out != nil {
		if err := json.Unmarshal(resp.Item, out); err != nil {
			return resp.View, err
		}
	}
	return resp.View, nil
}

// Comment posts a comment on the entity at path ("repo[/line[/num]]").
func (u *UserSimulator) Comment(ctx context.Context, path, message string) error {
	body := map[string]string{"message": message, "path": path}
	return u.do(ctx, http.MethodPost, "/api/comments", body, nil)
}
