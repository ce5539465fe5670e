package instances

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/netseek/netseek/pkg/plugin"
)

// saveRequest is the JSON body for PUT /current.
type saveRequest struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/current", Handler: m.handleCurrent},
		{Method: "PUT", Path: "/current", Handler: m.handleSave},
		{Method: "DELETE", Path: "/current", Handler: m.handleForget},
	}
}

// handleCurrent returns the last-connected instance, or 404 when none has
// been saved.
func (m *Module) handleCurrent(w http.ResponseWriter, r *http.Request) {
	repo, ok := m.ready(w)
	if !ok {
		return
	}
	inst, err := repo.Current(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no instance saved")
			return
		}
		m.logger.Error("get current instance failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error reading saved instance")
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// handleSave records a new last-connected instance. The URL must be an
// absolute http or https URL.
func (m *Module) handleSave(w http.ResponseWriter, r *http.Request) {
	repo, ok := m.ready(w)
	if !ok {
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inst := Instance{
		URL:         req.URL,
		Label:       req.Label,
		ConnectedAt: time.Now().UTC(),
	}
	if err := repo.Save(r.Context(), inst); err != nil {
		m.logger.Error("save instance failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error saving instance")
		return
	}

	if m.bus != nil {
		// Delivery outlives the request.
		m.bus.PublishAsync(context.Background(), plugin.Event{
			Topic:     TopicConnected,
			Source:    m.Name(),
			Timestamp: time.Now(),
			Payload:   inst,
		})
	}
	writeJSON(w, http.StatusOK, inst)
}

// handleForget clears the saved instance.
func (m *Module) handleForget(w http.ResponseWriter, r *http.Request) {
	repo, ok := m.ready(w)
	if !ok {
		return
	}
	if err := repo.Forget(r.Context()); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no instance saved")
			return
		}
		m.logger.Error("forget instance failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error forgetting instance")
		return
	}

	if m.bus != nil {
		m.bus.PublishAsync(context.Background(), plugin.Event{
			Topic:     TopicForgotten,
			Source:    m.Name(),
			Timestamp: time.Now(),
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// ready returns the repository, or writes 503 when Start has not run yet.
func (m *Module) ready(w http.ResponseWriter) (Repository, bool) {
	if m.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "instance store not ready")
		return nil, false
	}
	return m.repo, true
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be absolute http or https")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
