package handlers

import (
	"net/http"
)

// Health is the liveness probe. It reports process health only; queue depth
// and provider reachability are not part of the contract.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "service": "printforge"})
}
