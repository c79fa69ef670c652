package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Resolution
	mux.HandleFunc("/api/resolve", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			"GET":  s.app.ResolveHandler.ResolveHandler,
			"POST": s.app.ResolveHandler.ResolveHandler,
		})
	})
	mux.HandleFunc("/api/attribute", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			"GET":  s.app.ResolveHandler.AttributeHandler,
			"POST": s.app.ResolveHandler.AttributeHandler,
		})
	})

	// Alias index
	mux.HandleFunc("/api/index", s.app.IndexHandler.InfoHandler)
	mux.HandleFunc("/api/index/rebuild", s.app.IndexHandler.RebuildHandler)
	mux.HandleFunc("/api/index/entries/", s.app.IndexHandler.EntryHandler)

	// Query log
	mux.HandleFunc("/api/querylog", s.app.QueryLogHandler.ListHandler)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.app.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
