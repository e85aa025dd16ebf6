package handlers

import (
	"net/http"
	"time"
)

var processStart = time.Now()

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(processStart).Seconds()),
	})
}
