package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/catalog"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/vectordb"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, searchStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleUpsertVector(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Vector) == 0 {
		if s.embedder == nil {
			s.respondError(w, http.StatusServiceUnavailable, "embedding is not configured")
			return
		}
		vec, err := s.embedder.Embed(r.Context(), req.Text)
		if err != nil {
			s.logger.Error("embedding failed", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		req.Vector = vec
	}
	if err := s.vectors.Upsert(r.Context(), &req); err != nil {
		s.logger.Error("upsert failed", zap.String("id", req.ID), zap.Error(err))
		s.respondError(w, vectorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "upserted"})
}

func (s *Server) handleQueryVectors(w http.ResponseWriter, r *http.Request) {
	var query models.VectorQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	matches, err := s.vectors.Query(r.Context(), &query)
	if err != nil {
		s.logger.Error("vector query failed", zap.Error(err))
		s.respondError(w, vectorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches, "total": len(matches)})
}

func (s *Server) handleDeleteVector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	table := r.URL.Query().Get("table")
	s.logger.Debug("delete vector request", zap.String("id", id), zap.String("table", table))
	if err := s.vectors.Delete(r.Context(), id, table); err != nil {
		s.logger.Error("vector deletion failed", zap.Error(err))
		s.respondError(w, vectorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSaveProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ingestor.SaveProduct(r.Context(), &p); err != nil {
		s.logger.Error("save product failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &p)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	products, err := s.ingestor.Storage().ListProducts(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.ingestor.Storage().CountProducts(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"products": products, "total": total})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.ingestor.Storage().GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete product request", zap.String("id", id))
	if err := s.ingestor.DeleteProduct(r.Context(), id); err != nil {
		s.logger.Error("product deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSaveKnowledge(w http.ResponseWriter, r *http.Request) {
	var e models.KnowledgeEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ingestor.SaveKnowledge(r.Context(), &e); err != nil {
		s.logger.Error("save knowledge failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &e)
}

func (s *Server) handleListKnowledge(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	entries, err := s.ingestor.Storage().ListKnowledge(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.ingestor.Storage().CountKnowledge(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "total": total})
}

func (s *Server) handleGetKnowledge(w http.ResponseWriter, r *http.Request) {
	e, err := s.ingestor.Storage().GetKnowledge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "knowledge entry not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ingestor.DeleteKnowledge(r.Context(), id); err != nil {
		s.logger.Error("knowledge deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.vectors.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, vectorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.vectors.Health(r.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, health)
}

// vectorStatus maps vector service errors to HTTP status codes.
func vectorStatus(err error) int {
	switch {
	case errors.Is(err, vectordb.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, vectordb.ErrDimensionMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func searchStatus(err error) int {
	if errors.Is(err, vectordb.ErrNotInitialized) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
