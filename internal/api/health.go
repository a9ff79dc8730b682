package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	ConnectedScreens int     `json:"connected_screens"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		UptimeSeconds:    time.Since(s.startTime).Seconds(),
		ConnectedScreens: s.reg.Count(),
	})
}
