package watch

import (
	"encoding/json"
	"net/http"
)

// handleStatus returns the latest health observation of the saved instance.
func (m *Module) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.StatusSnapshot())
}
