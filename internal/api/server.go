package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/internal/database"
	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/Abhay-hack/Asset-Pulse/pkg/models"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AssetStore is the persistence surface the API consumes.
type AssetStore interface {
	ListAssets(ctx context.Context) ([]*models.Asset, error)
	ListFavorites(ctx context.Context) ([]*models.Asset, error)
	InsertAsset(ctx context.Context, name, symbol string, price float64, isFavorite bool) (*models.Asset, error)
	ToggleFavorite(ctx context.Context, id int64) (*models.Asset, error)
	Health(ctx context.Context) error
}

// Refresher prices a batch of assets, optionally forcing live refresh.
type Refresher interface {
	PriceBatch(ctx context.Context, assets []*models.Asset, force bool) (map[string]float64, error)
}

// Server represents the HTTP API server
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	store     AssetStore
	refresher Refresher
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, logger *logrus.Logger, store AssetStore, refresher Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		refresher: refresher,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.cfg.Security.CORSEnabled {
		s.router.Use(s.corsMiddleware)
	}

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	s.router.HandleFunc("/assets", s.handleCreateAsset).Methods("POST")
	s.router.HandleFunc("/assets/{id}/favorite", s.handleToggleFavorite).Methods("PATCH")
	s.router.HandleFunc("/favorites", s.handleListFavorites).Methods("GET")
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.cfg.GetServerAddr()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.WithField("address", addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Middleware functions

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.Security.CORSOrigins),
		handlers.AllowedMethods(s.cfg.Security.CORSMethods),
		handlers.AllowedHeaders(s.cfg.Security.CORSHeaders),
		handlers.AllowCredentials(),
	)(next)
}

// Handler functions

// handleRoot returns the service banner with available endpoints
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Asset Pulse backend is running",
		"endpoints": []string{"/health", "/assets", "/favorites"},
	})
}

// handleHealth reports storage connectivity
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"db":     "connected",
	})
}

// handleListAssets returns all assets, newest first, optionally refreshing
// live prices
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	s.listAssets(w, r, s.store.ListAssets)
}

// handleListFavorites returns favorite assets, newest first
func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	s.listAssets(w, r, s.store.ListFavorites)
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]*models.Asset, error)) {
	ctx := r.Context()

	assets, err := list(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list assets")
		http.Error(w, "Failed to retrieve assets", http.StatusInternalServerError)
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	prices, err := s.refresher.PriceBatch(ctx, assets, force)
	if err != nil {
		// Cancelled mid-batch; prices already resolved are still applied.
		s.logger.WithError(err).Warn("Price batch interrupted")
	}
	for _, asset := range assets {
		if price, ok := prices[asset.Symbol]; ok {
			asset.Price = price
		}
	}

	if assets == nil {
		assets = []*models.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

type createAssetRequest struct {
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	IsFavorite bool    `json:"is_favorite"`
}

// handleCreateAsset inserts a new asset
func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Symbol = strings.TrimSpace(req.Symbol)

	if req.Name == "" || req.Symbol == "" {
		http.Error(w, "Name and symbol are required", http.StatusBadRequest)
		return
	}
	if req.Price <= 0 {
		http.Error(w, "Price must be positive", http.StatusBadRequest)
		return
	}

	asset, err := s.store.InsertAsset(r.Context(), req.Name, req.Symbol, req.Price, req.IsFavorite)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			http.Error(w, fmt.Sprintf("Asset with symbol %s already exists", strings.ToUpper(req.Symbol)), http.StatusConflict)
			return
		}
		s.logger.WithError(err).Error("Failed to insert asset")
		http.Error(w, "Failed to create asset", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

// handleToggleFavorite flips the favorite flag of an asset
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := s.store.ToggleFavorite(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Asset not found", http.StatusNotFound)
			return
		}
		s.logger.WithError(err).Error("Failed to toggle favorite")
		http.Error(w, "Failed to update asset", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
