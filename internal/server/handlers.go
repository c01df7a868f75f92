package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside/internal/item"
)

const (
	msgNotFound = "Item not found"
	msgInternal = "Internal server error"
	msgBadJSON  = "Invalid JSON body"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())
	if !rep.OK() {
		s.log.Warn("health check failed", zap.String("error", rep.Error), zap.String("cause", rep.Cause))
		writeJSON(w, http.StatusInternalServerError, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.List(r.Context())
	if err != nil {
		s.fail(w, "list", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	it, err := s.items.Get(r.Context(), id)
	if err != nil {
		s.fail(w, "get", id, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	it, err := s.items.Create(r.Context(), in)
	if err != nil {
		s.fail(w, "create", 0, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	it, err := s.items.Replace(r.Context(), id, in)
	if err != nil {
		s.fail(w, "update", id, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.items.Delete(r.Context(), id); err != nil {
		s.fail(w, "delete", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route variable. The route pattern only admits
// digits; zero and values past int64 name no item.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request) (item.Input, bool) {
	var in item.Input
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return in, false
		}
		writeError(w, http.StatusBadRequest, msgBadJSON)
		return in, false
	}
	in, err := in.Normalize()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

// fail maps service errors to responses. Anything unexpected is logged in
// full and answered with a generic 500.
func (s *Server) fail(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, item.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, item.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
