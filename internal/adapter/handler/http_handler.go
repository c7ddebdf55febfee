package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mareevma/skladbot/internal/core/domain"
	"github.com/mareevma/skladbot/internal/core/service"
	"github.com/mareevma/skladbot/internal/port"
)

// HTTPHandler exposes the same pipeline and read surfaces over JSON
// for non-chat clients.
type HTTPHandler struct {
	commands *service.CommandService
	store    port.WarehouseStore
}

type CommandHTTPRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type CommandHTTPResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Mode    string           `json:"mode,omitempty"`
	Summary string           `json:"summary,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

type StockRowResponse struct {
	Name     string  `json:"name"`
	Size     *string `json:"size"`
	Location string  `json:"location_code"`
	Qty      int     `json:"qty"`
}

type AuditLogResponse struct {
	TS      time.Time `json:"ts"`
	User    string    `json:"user"`
	Summary string    `json:"summary"`
}

func NewHTTPHandler(commands *service.CommandService, store port.WarehouseStore) *HTTPHandler {
	return &HTTPHandler{commands: commands, store: store}
}

func (h *HTTPHandler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.User == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, CommandHTTPResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}

	result, err := h.commands.Handle(r.Context(), req.User, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		message := "database error"

		var bizErr *service.BusinessError
		if errors.As(err, &bizErr) {
			status = http.StatusUnprocessableEntity
			message = bizErr.Reason
		} else if errors.Is(err, service.ErrScriptRejected) {
			status = http.StatusForbidden
			message = "rejected by safety check"
		} else if errors.Is(err, service.ErrGeneratorFailed) || errors.Is(err, service.ErrBadPayload) {
			status = http.StatusBadGateway
			message = "command generator error"
		}

		writeJSON(w, status, CommandHTTPResponse{
			Success: false,
			Message: message,
		})
		return
	}

	resp := CommandHTTPResponse{
		Success: true,
		Mode:    string(result.Mode),
		Summary: result.Summary,
	}
	if result.Mode == domain.ModeRead && result.Rows != nil {
		resp.Columns = result.Rows.Columns
		resp.Rows = result.Rows.Rows
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Stock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := h.store.ListStock(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}

	out := make([]StockRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, StockRowResponse{
			Name:     row.Name,
			Size:     row.Size,
			Location: row.Location,
			Qty:      row.Qty,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := recentLogsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	logs, err := h.store.RecentLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}

	out := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, AuditLogResponse{TS: l.TS, User: l.User, Summary: l.Summary})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
