package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/netinfo"
	"github.com/netseek/netseek/pkg/netaddr"
	"github.com/netseek/netseek/pkg/plugin"
)

// probeRequest is the JSON body for POST /probe (manual address entry).
type probeRequest struct {
	Address string `json:"address"`
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/scan", Handler: m.handleStartScan},
		{Method: "GET", Path: "/scan", Handler: m.handleScanStatus},
		{Method: "POST", Path: "/probe", Handler: m.handleProbe},
	}
}

// handleStartScan kicks off a background sweep and returns its ID.
// A scan already in flight yields 409; a device without usable network
// identity yields 503 (no capability) or 422 (no address).
func (m *Module) handleStartScan(w http.ResponseWriter, r *http.Request) {
	// The sweep outlives the HTTP request that started it.
	scanID, err := m.scanner.RunAsync(context.Background())
	if err != nil {
		switch {
		case errors.Is(err, ErrScanInProgress):
			writeError(w, http.StatusConflict, "scan already in progress")
		case errors.Is(err, netinfo.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "local network scanning unavailable")
		case errors.Is(err, netinfo.ErrNoAddress):
			writeError(w, http.StatusUnprocessableEntity, "cannot determine device address")
		default:
			m.logger.Error("scan start failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "error scanning network")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID})
}

// handleScanStatus returns the live scanner snapshot. An idle scanner with
// an empty match list is the "nothing found" terminal state; clients
// should offer manual address entry in that case.
func (m *Module) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.scanner.StatusSnapshot())
}

// handleProbe checks a single caller-supplied address, the manual fallback
// path when a sweep finds nothing.
func (m *Module) handleProbe(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := netaddr.ParseIPv4(req.Address); err != nil {
		writeError(w, http.StatusBadRequest, "invalid IPv4 address")
		return
	}

	matched := m.checker.Check(r.Context(), req.Address)
	writeJSON(w, http.StatusOK, map[string]any{
		"address": req.Address,
		"match":   matched,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
