package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.deps.Health))
	for name := range s.deps.Health {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make(map[string]string, len(names))
	for _, name := range names {
		status := "connected"
		if err := s.deps.Health[name](ctx); err != nil {
			status = "disconnected"
		}
		services[name] = status
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.deps.Now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}
