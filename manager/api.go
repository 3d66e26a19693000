package manager

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/store"
)

// RouteInfo describes one entry of the served route table.
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Name   string `json:"name"`
}

// ManagementAPI is served on the internal admin listener only.
type ManagementAPI struct {
	Store  store.Storer
	Routes []RouteInfo

	started time.Time
	now     func() time.Time
}

type BlockRequest struct {
	IP       string `json:"ip"`
	Duration string `json:"duration"` // e.g. "1h", "permanent"
}

type StatusResponse struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	Routes       []RouteInfo       `json:"routes"`
	ActiveBlocks map[string]string `json:"active_blocks"`
	Timestamp    time.Time         `json:"timestamp"`
}

// DefaultBlockDuration applies when a block request names no duration.
const DefaultBlockDuration = 24 * time.Hour

func NewManagementAPI(s store.Storer, routes []RouteInfo) *ManagementAPI {
	return &ManagementAPI{Store: s, Routes: routes, started: time.Now(), now: time.Now}
}

// Register installs the API handlers on mux.
func (api *ManagementAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", api.handleStatus)
	mux.HandleFunc("POST /api/block", api.handleBlock)
	mux.HandleFunc("DELETE /api/block", api.handleUnblock)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (api *ManagementAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	blocks, err := api.Store.ListBlocks(r.Context())
	if err != nil {
		logger.Error("Failed to list blocks", "err", err)
		http.Error(w, "Failed to list blocks", http.StatusInternalServerError)
		return
	}
	now := api.now()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:       "active",
		Uptime:       now.Sub(api.started).Round(time.Second).String(),
		Routes:       api.Routes,
		ActiveBlocks: blocks,
		Timestamp:    now,
	})
}

// parseBlockDuration maps a request duration to a store TTL and block reason.
func parseBlockDuration(s string) (time.Duration, string, bool) {
	switch s {
	case "":
		return DefaultBlockDuration, "temp", true
	case "permanent":
		return 0, "hard", true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, "", false
	}
	return d, "temp", true
}

func (api *ManagementAPI) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.IP == "" {
		http.Error(w, "IP required", http.StatusBadRequest)
		return
	}
	ip, err := store.CanonicalIP(req.IP)
	if err != nil {
		http.Error(w, "Invalid IP", http.StatusBadRequest)
		return
	}
	ttl, reason, ok := parseBlockDuration(req.Duration)
	if !ok {
		http.Error(w, "Invalid duration", http.StatusBadRequest)
		return
	}

	if err := api.Store.Block(r.Context(), ip, ttl, reason); err != nil {
		logger.Error("Block failed", "ip", ip, "err", err)
		http.Error(w, "Block failed", http.StatusInternalServerError)
		return
	}
	logger.Info("Manual block issued", "ip", ip, "type", reason, "duration", ttl)
	w.WriteHeader(http.StatusCreated)
}

func (api *ManagementAPI) handleUnblock(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ip")
	if raw == "" {
		http.Error(w, "IP required", http.StatusBadRequest)
		return
	}
	ip, err := store.CanonicalIP(raw)
	if err != nil {
		http.Error(w, "Invalid IP", http.StatusBadRequest)
		return
	}
	if err := api.Store.Unblock(r.Context(), ip); err != nil {
		logger.Error("Unblock failed", "ip", ip, "err", err)
		http.Error(w, "Clear failed", http.StatusInternalServerError)
		return
	}
	logger.Info("Manual block clearance", "ip", ip)
	w.WriteHeader(http.StatusNoContent)
}
