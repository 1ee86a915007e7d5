package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/cafebot-go/internal/audit"
	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/qa"
)

// handleQuery handles POST /api/chat/query. The reply is always 200 once
// the request is valid; resolution failures are carried in the answer text.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, r, http.StatusOK, s.chat.Ask(r.Context(), req.Query))
}

// handleAdd handles POST /api/embedding/add.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req addRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CollectionName == "" {
		writeError(w, r, http.StatusBadRequest, "collectionName is required")
		return
	}

	fact := qa.Fact{
		Document:     req.Document,
		Questions:    req.Questions,
		Kind:         qa.Kind(req.AnswerType),
		FunctionPath: req.FunctionPath,
		Parameters:   req.Parameters,
	}
	err := s.chat.Ingest(r.Context(), req.CollectionName, fact)
	audit.LogIngest(r.Context(), log, "http", req.CollectionName, len(req.Questions), err)

	switch {
	case errors.Is(err, qa.ErrInvalidFact):
		s.metrics.ingestTotal.WithLabelValues("invalid").Inc()
		writeError(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		s.metrics.ingestTotal.WithLabelValues("error").Inc()
		log.Error("server: ingest failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	default:
		s.metrics.ingestTotal.WithLabelValues("ok").Inc()
		writeJSON(w, r, http.StatusOK, messageResponse{Success: true, Message: "Document and questions added successfully"})
	}
}

// handleRetrieve handles POST /api/embedding/query.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CollectionName == "" || strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "collectionName and query are required")
		return
	}

	answers, err := s.chat.Retrieve(r.Context(), req.CollectionName, req.Query, req.Limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("server: retrieve failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if answers == nil {
		answers = []qa.Answer{}
	}
	writeJSON(w, r, http.StatusOK, answers)
}

// handleAll handles GET /api/embedding/{collectionName}/all.
func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("collectionName")
	records, err := s.chat.Documents(r.Context(), name)
	if err != nil {
		logging.FromContext(r.Context()).Error("server: list documents failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]documentResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, documentResponse{ID: rec.ID, Document: rec.Document, Metadata: rec.Metadata})
	}
	writeJSON(w, r, http.StatusOK, out)
}
