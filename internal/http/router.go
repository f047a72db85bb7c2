package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"garage-backend/internal/handlers"
	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Session  *handlers.SessionHandler
	TOTP     *handlers.TOTPHandler
	Clients  *handlers.ClientHandler
	Catalog  *handlers.CatalogHandler
	Team     *handlers.TeamHandler
	Calendar *handlers.CalendarHandler
	AppInfo  *handlers.AppInfoHandler
	Backup   *handlers.BackupHandler
	Health   *handlers.HealthHandler
	Realtime http.Handler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Public API routes - Authentication
	r.HandleFunc("/auth/check-signup-code", h.Auth.CheckSignupCode).Methods("POST")
	r.HandleFunc("/auth/signup", h.Auth.Signup).Methods("POST")
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/auth/login/totp", h.Auth.LoginTOTP).Methods("POST")
	r.HandleFunc("/api/app-info", h.AppInfo.GetAppInfo).Methods("GET")

	// Token-only routes, reachable by deactivated accounts
	authenticated := func(fn http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(fn)
	}
	r.Handle("/auth/refresh", authenticated(h.Auth.Refresh)).Methods("POST")
	r.Handle("/auth/logout", authenticated(h.Auth.Logout)).Methods("POST")
	r.Handle("/api/session", authenticated(h.Session.GetSession)).Methods("GET")

	// Realtime feeds authenticate the token themselves
	r.Handle("/ws", h.Realtime).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.Use(authMiddleware.RequireActive)

	api.HandleFunc("/me/totp/setup", h.TOTP.SetupTOTP).Methods("POST")
	api.HandleFunc("/me/totp/enable", h.TOTP.EnableTOTP).Methods("POST")
	api.HandleFunc("/me/totp/disable", h.TOTP.DisableTOTP).Methods("POST")

	api.HandleFunc("/clients", h.Clients.ListClients).Methods("GET")
	api.HandleFunc("/clients", h.Clients.CreateClient).Methods("POST")
	api.HandleFunc("/clients/{id}", h.Clients.UpdateClient).Methods("PUT")
	api.HandleFunc("/clients/{id}", h.Clients.DeleteClient).Methods("DELETE")

	// Service catalog: reads for everyone, writes checked by the service
	api.HandleFunc("/services", h.Catalog.ListServices).Methods("GET")
	api.HandleFunc("/services", h.Catalog.CreateService).Methods("POST")
	api.HandleFunc("/services/{id}", h.Catalog.UpdateService).Methods("PUT")
	api.HandleFunc("/services/{id}", h.Catalog.DeleteService).Methods("DELETE")

	api.HandleFunc("/profiles", h.Team.ListProfiles).Methods("GET")
	api.HandleFunc("/profiles/{id}", h.Team.UpdateProfile).Methods("PATCH")

	api.HandleFunc("/calendar", h.Calendar.GetCalendar).Methods("GET")
	api.HandleFunc("/calendar/daysheet", h.Calendar.GetDaySheet).Methods("GET")
	api.HandleFunc("/events", h.Calendar.ListEvents).Methods("GET")
	api.HandleFunc("/events", h.Calendar.CreateEvent).Methods("POST")
	api.HandleFunc("/events/{id}", h.Calendar.GetEvent).Methods("GET")
	api.HandleFunc("/events/{id}", h.Calendar.UpdateEvent).Methods("PUT")
	api.HandleFunc("/events/{id}", h.Calendar.DeleteEvent).Methods("DELETE")

	// Admin only
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/backup", h.Backup.RunBackup).Methods("POST")
	admin.HandleFunc("/backup", h.Backup.GetStatus).Methods("GET")

	// Health endpoints
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
