package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/infra/logging"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type tagResponse struct {
	Token     string `json:"token"`
	Status    string `json:"status"`
	TargetURL string `json:"target_url,omitempty"`
}

func toTagResponse(t *model.Tag) tagResponse {
	return tagResponse{Token: t.Token, Status: string(t.Status), TargetURL: t.Target()}
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil || !s.Auth.CheckCredentials(req.Email, req.Password) {
		logging.With(r.Context(), s.log).Warn().Str("email", logging.RedactEmail(req.Email, false)).Msg("admin login rejected")
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := s.Auth.Mint(w, req.Email)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("mint admin session")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.Admin.RecordLogin(r.Context(), req.Email, logging.ClientIP(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.Clear(w)
	s.Admin.RecordLogout(r.Context(), adminFromContext(r.Context()), logging.ClientIP(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Admin.Stats(r.Context())
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAdminBlock(w http.ResponseWriter, r *http.Request) {
	tag, err := s.Admin.Block(r.Context(), adminFromContext(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagResponse(tag))
}

func (s *Server) handleAdminUnblock(w http.ResponseWriter, r *http.Request) {
	tag, err := s.Admin.Unblock(r.Context(), adminFromContext(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagResponse(tag))
}

func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	entries, err := s.Admin.TagAudit(r.Context(), chi.URLParam(r, "token"), limit)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (s *Server) handleAdminImport(w http.ResponseWriter, r *http.Request) {
	report, err := s.Admin.Import(r.Context(), adminFromContext(r.Context()), http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.Admin.Export(r.Context(), &buf); err != nil {
		s.adminError(w, r, err)
		return
	}
	name := fmt.Sprintf("tags_export_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// adminError is explicit about unknown tags, unlike the public surface.
func (s *Server) adminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Tag not found")
	case errors.Is(err, domain.ErrNotAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
