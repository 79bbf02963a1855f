package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"tagpay/internal/infra/logging"
	"tagpay/internal/usecase"
)

type activateRequest struct {
	Token         string `json:"token" validate:"max=64"`
	Name          string `json:"name" validate:"max=100"`
	Email         string `json:"email" validate:"max=254"`
	Phone         string `json:"phone" validate:"max=32"`
	PaymentHandle string `json:"payment_handle" validate:"max=512"`
}

type activateResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
}

type promptResponse struct {
	Token string `json:"token"`
	State string `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "tagpay-api"})
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, chi.URLParam(r, "token"))
}

func (s *Server) handleRootToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if reservedPaths[strings.ToLower(token)] {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.resolve(w, r, token)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, token string) {
	ctx := logging.WithToken(r.Context(), token)
	d, err := s.Redirect.Resolve(ctx, token, usecase.AccessInfo{
		ClientIP:  logging.ClientIP(ctx),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	})
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("resolve failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	switch d.Kind {
	case usecase.DecisionPermanentRedirect, usecase.DecisionActivationRedirect:
		http.Redirect(w, r, d.URL, d.StatusCode())
	default:
		writeError(w, http.StatusNotFound, "Token not found")
	}
}

func (s *Server) handleActivatePrompt(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	ctx := logging.WithToken(r.Context(), token)
	state, err := s.Redirect.PromptState(ctx, token, logging.ClientIP(ctx))
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("activation prompt failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	resp := promptResponse{Token: token, State: string(state)}
	if state == usecase.PromptUnavailable || state == usecase.PromptInvalid {
		resp.Token = ""
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeActivateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, fieldErrorMessage(err))
		return
	}

	ctx := logging.WithToken(r.Context(), req.Token)
	res, err := s.Activation.Activate(ctx, usecase.ActivateInput{
		Token:         req.Token,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PaymentHandle: req.PaymentHandle,
		ClientIP:      logging.ClientIP(ctx),
	})
	if err != nil {
		status, msg := errorResponse(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, activateResponse{
		Success:     true,
		Message:     "Token activated successfully",
		RedirectURL: res.RedirectURL,
	})
}

// decodeActivateRequest accepts a JSON body or a regular form post.
func decodeActivateRequest(r *http.Request) (activateRequest, error) {
	var req activateRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
		err := dec.Decode(&req)
		return req, err
	}
	r.Body = http.MaxBytesReader(nil, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req = activateRequest{
		Token:         r.PostForm.Get("token"),
		Name:          r.PostForm.Get("name"),
		Email:         r.PostForm.Get("email"),
		Phone:         r.PostForm.Get("phone"),
		PaymentHandle: r.PostForm.Get("payment_handle"),
	}
	return req, nil
}

func fieldErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "Field " + strings.ToLower(verrs[0].Field()) + " is too long"
	}
	return "Invalid request"
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.Profiles.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if status, _ := errorResponse(err); status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("profile lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, prof)
}
