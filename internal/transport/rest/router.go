package rest

import (
	"livepoll/internal/service"
	"livepoll/internal/transport/rest/handler"
	"livepoll/internal/transport/rest/middleware"
	"livepoll/internal/transport/ws"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Container holds all dependencies for the router
type Container struct {
	SessionService *service.SessionService
	WSHandler      *ws.Handler
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.SessionService)
	authMiddleware := middleware.NewAuthMiddleware(c.SessionService)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// WebSocket routes
	if c.WSHandler != nil {
		r.HandleFunc("/ws", c.WSHandler.ServeWS).Methods("GET")
		r.HandleFunc("/ws/stats", c.WSHandler.Stats).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", sessionHandler.Create).Methods("POST")
	api.HandleFunc("/session/{code}", sessionHandler.Get).Methods("GET")
	api.Handle("/session/{code}/questions", authMiddleware.RequirePresenter(http.HandlerFunc(sessionHandler.AddQuestion))).Methods("POST")
	api.HandleFunc("/session/{code}/results", sessionHandler.Results).Methods("GET")

	return corsMiddleware(c.AllowedOrigins).Handler(r)
}

func corsMiddleware(allowedOrigins []string) *cors.Cors {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
}
