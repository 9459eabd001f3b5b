package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/aoi"
)

const defaultHistoryLimit = 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.record(r.Context())
	if err != nil {
		s.logger.Error("load record failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, "no background generated yet")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.history.Count(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

func (s *Server) handleAOIs(w http.ResponseWriter, r *http.Request) {
	if s.aois == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"aois": []aoi.Summary{}})
		return
	}
	c, err := s.aois.Load(r.Context())
	if err != nil {
		s.logger.Error("load aois failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"aois": aoi.Summarize(c)})
}

func (s *Server) serveFile(path func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := path()
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			s.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if info.IsDir() {
			s.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, p)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
