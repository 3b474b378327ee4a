package api

import (
	"net/http"
	"time"

	"github.com/adityawarman/citralab/internal/handler"
	"github.com/adityawarman/citralab/internal/health"
	"github.com/adityawarman/citralab/internal/history"
	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/pipeline"
	"github.com/adityawarman/citralab/internal/session"
	"github.com/adityawarman/citralab/internal/storage"
	"github.com/adityawarman/citralab/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// API is a http api
type API struct {
	Pipeline       *pipeline.Pipeline
	History        history.Provider
	Storage        storage.Provider
	Session        *session.Session
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	RootURL        string
	HandlerTimeout time.Duration
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	// Redirect trailing slashes
	router.StrictSlash(true)

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET")

	// Pages
	router.Handle("/", handler.Handler(a.indexHandler)).Methods("GET")
	router.Handle("/upload", handler.Handler(a.uploadHandler)).Methods("GET")
	router.Handle("/process", handler.Handler(a.processHandler)).Methods("POST")
	router.Handle("/history", handler.Handler(a.historyHandler)).Methods("GET")
	router.Handle("/logout", handler.Handler(a.logoutHandler)).Methods("GET")

	// History list
	router.Handle("/v2/history", handler.Handler(a.listHandler)).Methods("GET")

	// Query parameters:
	// ?nama={name} - Whose history to display
	// ?page={page} - What page to display
	// ?limit={limit} - How many entries to display per page

	// History removal
	router.Handle("/delete_history", handler.Handler(a.deleteHistoryHandler)).Methods("GET")
	router.Handle("/delete_item", handler.Handler(a.deleteItemHandler)).Methods("GET")

	// Stored artifacts
	router.Handle("/static/{area:uploads|processed}/{file}", handler.Handler(a.staticHandler)).Methods("GET")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."))

	// Set up handlers for adding a request id, handling panics, request
	// logging, collecting metrics, tracing, CORS headers, and handler
	// execution timeouts
	return handler.AddRequestID(
		handler.Recovery(a.Log,
			handler.Logger(a.Log,
				handler.Metrics(
					handler.Tracer(a.Tracer, corsHandler, routeMatcher),
					routeMatcher))))
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}

func redirect(w http.ResponseWriter, r *http.Request, location string) *handler.Error {
	http.Redirect(w, r, location, http.StatusFound)
	return nil
}
