package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vente/apiserver/internal/logging"
)

// APIVersion is reported by the health endpoint.
const APIVersion = "0.1.0"

const healthPingTimeout = 2 * time.Second

// Pinger checks connectivity to the database.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type WelcomeResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	APIVersion   string `json:"api_version"`
	DBConnection string `json:"db_connection"`
}

func Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: "Welcome to the e-commerce API"})
}

// Health reports the database ping outcome. The endpoint itself always
// answers 200 so that a database outage is visible in the body.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if db == nil {
			status = "not configured"
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logging.FromContext(r.Context()).WithError(err).Error("database ping failed")
				status = "error"
			}
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:       "healthy",
			APIVersion:   APIVersion,
			DBConnection: status,
		})
	}
}
