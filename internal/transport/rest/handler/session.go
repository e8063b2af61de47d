package handler

import (
	"encoding/json"
	"errors"
	"io"
	"livepoll/internal/model"
	"livepoll/internal/service"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// SessionHandler handles session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Create handles POST /api/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.sessionSvc.CreateSession(r.Context(), &req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/session/{code}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	session, err := h.sessionSvc.GetByCode(code)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// AddQuestion handles POST /api/session/{code}/questions
func (h *SessionHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.sessionSvc.AddQuestion(r.Context(), code, &q)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Results handles GET /api/session/{code}/results
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	results, err := h.sessionSvc.Results(code)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNoSession):
		writeError(w, http.StatusNotFound, model.ErrNoSession.Error())
		return
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
