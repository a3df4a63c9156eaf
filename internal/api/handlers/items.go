package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cascade-ml/cascade-ui/internal/browser"
	"github.com/cascade-ml/cascade-ui/internal/hydrate"
	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// OutcomeCurrent marks a table response that only reports the rows held.
const OutcomeCurrent = "current"

const wsWriteTimeout = 10 * time.Second

// ItemsHandler serves the hydrated item table of a line.
type ItemsHandler struct {
	browser *browser.Browser
	tables  *TableRegistry
	logger  *slog.Logger
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(b *browser.Browser, tables *TableRegistry, logger *slog.Logger) *ItemsHandler {
	return &ItemsHandler{
		browser: b,
		tables:  tables,
		logger:  logger,
	}
}

// TableResponse is the state of a line's item table after a request.
type TableResponse struct {
	Line    string           `json:"line"`
	Fields  []string         `json:"fields"`
	Outcome string           `json:"outcome"`
	Rows    []models.ItemRow `json:"rows"`
	Error   string           `json:"error,omitempty"`
}

// TableRequest is sent by websocket clients to select fields.
type TableRequest struct {
	Fields []string `json:"fields"`
}

// lineTable resolves the line addressed by the route and returns its table,
// loading the line first if the server holds no table for it yet.
func (h *ItemsHandler) lineTable(ctx context.Context, r *http.Request) (pathspec.LinePathSpec, *hydrate.Table, error) {
	spec, err := h.browser.LineSpec(ctx, chi.URLParam(r, "repo"), chi.URLParam(r, "line"))
	if err != nil {
		return spec, nil, err
	}
	if t, ok := h.tables.Lookup(spec); ok {
		return spec, t, nil
	}
	line, err := h.browser.LoadLine(ctx, spec)
	if err != nil {
		return spec, nil, err
	}
	return spec, h.tables.Seed(spec, line.Items), nil
}

func (h *ItemsHandler) hydrate(ctx context.Context, spec pathspec.LinePathSpec, t *hydrate.Table, fields []string) TableResponse {
	resp := TableResponse{Line: spec.String(), Fields: hydrate.Fields(fields...), Outcome: OutcomeCurrent}
	if len(resp.Fields) > 0 {
		outcome, err := h.browser.HydrateLine(ctx, spec, t, resp.Fields...)
		resp.Outcome = outcome.String()
		if err != nil {
			resp.Error = err.Error()
		}
	}
	resp.Rows = t.Rows()
	return resp
}

// Table handles GET /api/repos/{repo}/lines/{line}/items?fields=a,b. The
// requested fields are merged into the rows the server holds for the line.
// A failed fetch still answers 200 with the unchanged rows and the error.
func (h *ItemsHandler) Table(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spec, t, err := h.lineTable(ctx, r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.hydrate(ctx, spec, t, queryFields(r)))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream handles GET /api/repos/{repo}/lines/{line}/items/ws. The client
// sends TableRequest messages; each one is fetched concurrently and the
// table is pushed back after every fetch that changed or failed to change
// it. Fetches overtaken by a later selection are not pushed.
func (h *ItemsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	spec, t, err := h.lineTable(r.Context(), r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("item table stream started", "line", spec.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	send := func(resp TableResponse) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(resp)
	}

	if err := send(TableResponse{Line: spec.String(), Outcome: OutcomeCurrent, Rows: t.Rows()}); err != nil {
		h.logger.Debug("failed to send initial item table", "line", spec.String(), "error", err)
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("item table stream closed", "line", spec.String(), "error", err)
			cancel()
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var req TableRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			resp := TableResponse{Line: spec.String(), Outcome: hydrate.Failed.String(), Error: "invalid request: " + err.Error(), Rows: t.Rows()}
			if err := send(resp); err != nil {
				h.logger.Debug("failed to answer item table stream", "line", spec.String(), "error", err)
				cancel()
				return
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := h.hydrate(ctx, spec, t, req.Fields)
			if resp.Outcome == hydrate.Stale.String() {
				return
			}
			if err := send(resp); err != nil {
				h.logger.Debug("failed to push item table", "line", spec.String(), "error", err)
			}
		}()
	}
}
