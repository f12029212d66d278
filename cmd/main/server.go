package main

import (
	"log/slog"
	"net/http"
)

// Server bundles the API handlers behind one authenticated mux.
type Server struct {
	app       *App
	logger    *slog.Logger
	authAPI   *AuthAPI
	modelAPI  *ModelAPI
	corpusAPI *CorpusAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
}

func NewServer(cm *ConfigManager, app *App, logger *slog.Logger, actionChan chan string) *Server {
	server := &Server{
		app:       app,
		logger:    logger,
		authAPI:   NewAuthAPI(cm, logger),
		modelAPI:  NewModelAPI(app, logger),
		corpusAPI: NewCorpusAPI(app, logger),
		serverAPI: NewServerAPI(cm, app, actionChan, logger),
		apiMux:    http.NewServeMux(),
	}

	mux := http.NewServeMux()
	server.modelAPI.RegisterRoutes(mux)
	server.corpusAPI.RegisterRoutes(mux)
	server.serverAPI.RegisterRoutes(mux)

	// Every api route passes through authentication first.
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(mux))
	server.apiMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not found")
	})

	return server
}

// ServeHTTP logs each request at debug level and hands it to the api mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Handling request", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	s.apiMux.ServeHTTP(w, r)
}
