package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Guillaume6606/sales-market-discovery/internal/config"
	"github.com/Guillaume6606/sales-market-discovery/internal/db"
	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
	"github.com/Guillaume6606/sales-market-discovery/internal/logger"
	"github.com/Guillaume6606/sales-market-discovery/internal/metrics"
)

// Server is the thin HTTP control surface over the computation engine.
// It decodes, dispatches to the orchestrator or store, and encodes; all
// domain logic lives in internal/engine.
type Server struct {
	cfg *config.Config
	db  *db.DB
	orc *engine.Orchestrator
}

// NewServer creates a Server wired to the given store and orchestrator.
func NewServer(cfg *config.Config, database *db.DB, orc *engine.Orchestrator) *Server {
	return &Server{cfg: cfg, db: database, orc: orc}
}

// Handler returns the HTTP handler with all API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/compute", s.handleComputeBatch)
	mux.HandleFunc("GET /api/compute/last", s.handleLastBatch)
	mux.HandleFunc("POST /api/compute/{productID}", s.handleComputeProduct)
	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	mux.HandleFunc("GET /api/products/{productID}/state", s.handleProductState)
	mux.HandleFunc("POST /api/products/{productID}/observations", s.handleAddObservation)
	mux.HandleFunc("GET /api/opportunity/{obsID}", s.handleOpportunity)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orc.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleComputeBatch kicks off a batch run in the background and returns
// immediately; results land in /api/compute/last.
func (s *Server) handleComputeBatch(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := s.orc.ComputeAll(context.Background()); err != nil {
			logger.Error("API", fmt.Sprintf("Batch computation failed: %v", err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleLastBatch(w http.ResponseWriter, r *http.Request) {
	outcomes, at := s.orc.LastBatch()
	if outcomes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"outcomes": []engine.Outcome{}, "completed_at": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes, "completed_at": at.UTC().Format(time.RFC3339)})
}

func (s *Server) handleComputeProduct(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productID")
	if _, err := s.db.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, engine.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err := s.orc.ComputeProduct(r.Context(), productID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": engine.OutcomeSuccess})
	case errors.Is(err, engine.ErrAlreadyComputing):
		writeError(w, http.StatusConflict, "already_computing")
	case errors.Is(err, engine.ErrInsufficientData):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"status": engine.OutcomeInsufficientData,
			"detail": err.Error(),
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.db.ListActiveProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if products == nil {
		products = []engine.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		SearchQuery string `json:"search_query"`
		Brand       string `json:"brand"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p, err := s.db.CreateProduct(r.Context(), req.Name, req.SearchQuery, req.Brand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProductState(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productID")
	if _, err := s.db.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, engine.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	state, err := s.orc.ProductState(r.Context(), productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"product_id": productID, "state": string(state)})
}

// handleAddObservation appends one listing snapshot. This stands in for the
// marketplace connectors, which are external to this service.
func (s *Server) handleAddObservation(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productID")
	if _, err := s.db.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, engine.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var obs engine.Observation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if obs.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	obs.ProductID = productID
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now().UTC()
	}
	if obs.Currency == "" {
		obs.Currency = "EUR"
	}

	id, err := s.db.InsertObservation(r.Context(), obs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"obs_id": id})
}

func (s *Server) handleOpportunity(w http.ResponseWriter, r *http.Request) {
	obsID, err := strconv.ParseInt(r.PathValue("obsID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid observation id")
		return
	}

	score, err := s.orc.Opportunity(r.Context(), obsID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, score)
	case errors.Is(err, engine.ErrObservationNotFound):
		writeError(w, http.StatusNotFound, "observation not found")
	case errors.Is(err, engine.ErrNoPMN):
		writeError(w, http.StatusConflict, "no_pmn")
	case errors.Is(err, engine.ErrUnknownMarketplace):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
