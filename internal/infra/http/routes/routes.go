// Package routes wires handlers and per-route middleware to the router.
package routes

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	infrahttp "github.com/folioapp/api/internal/infra/http"
	"github.com/folioapp/api/internal/infra/http/handler"
	"github.com/folioapp/api/internal/infra/http/middleware"
	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/logger"
)

// Deps carries everything route registration needs.
type Deps struct {
	Health  *handler.HealthHandler
	Chat    *handler.ChatHandler
	Contact *handler.ContactHandler
	Admin   *handler.AdminHandler

	Limiter  ratelimit.Limiter
	Policies map[string]ratelimit.Policy
	Logger   *logger.Logger
}

// Register mounts every route on the router. Rate-limit policies are
// applied per route; admission control runs in the global chain.
func Register(r infrahttp.Router, d Deps) {
	chatLimit := middleware.PolicyRateLimit(d.Limiter, d.Policies[ratelimit.PolicyChat], d.Logger)
	contactLimit := middleware.PolicyRateLimit(d.Limiter, d.Policies[ratelimit.PolicyContact], d.Logger)
	adminLimit := middleware.PolicyRateLimit(d.Limiter, d.Policies[ratelimit.PolicyAdmin], d.Logger)

	r.GET("/api/health", d.Health.Health)
	r.GET("/api/health/ready", d.Health.Ready)

	r.POST("/api/chat", d.Chat.Chat, chatLimit)
	r.POST("/api/contact", d.Contact.Contact, contactLimit)

	r.Group("/api/admin", func(admin infrahttp.Router) {
		admin.GET("/stats", d.Admin.Stats)
		admin.GET("/submissions", d.Admin.Submissions)
	}, adminLimit)

	r.GET("/metrics", promhttp.Handler().ServeHTTP)
}
