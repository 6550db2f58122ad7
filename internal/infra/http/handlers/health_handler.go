package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Momo-444/toitureai-api/internal/log"
)

const version = "1.0.0"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	DB        Pinger
	RabbitMQ  *amqp091.Connection
	Env       string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func NewHealthHandler(db Pinger, rabbitMQ *amqp091.Connection, env string) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		Env:       env,
		StartTime: time.Now(),
	}
}

// Root describes the service.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "ToitureAI API",
		"version":     version,
		"environment": h.Env,
		"docs":        "/health",
	})
}

// Live only proves the process answers.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version,
		Uptime:  h.uptime(),
	})
}

// Ready checks the database and, when configured, the broker.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			log.Warn("readiness: database ping failed", slog.String("error", err.Error()))
			deps["database"] = "unhealthy"
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
	}

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      version,
		Uptime:       h.uptime(),
		Dependencies: deps,
	})
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.StartTime).Round(time.Second).String()
}
