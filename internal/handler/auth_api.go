package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"chorebank/internal/auth"
	"chorebank/internal/dependent"
	"chorebank/internal/guardian"
	"chorebank/internal/model"
)

type AuthHandler struct {
	provider   auth.Provider
	tokens     *auth.Tokens
	dependents *dependent.Manager
	guardians  *guardian.Manager
	logger     *slog.Logger
}

func NewAuthHandler(p auth.Provider, tokens *auth.Tokens, dm *dependent.Manager, gm *guardian.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: p, tokens: tokens, dependents: dm, guardians: gm, logger: logger}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.provider.SignUp(r.Context(), req.Email, req.Password, model.Role(req.Role))
	if err != nil {
		writeFault(w, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFault(w, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// SignOut ends the caller's live session, releasing its subscriptions. The
// token itself stays valid until it expires; this only frees server state.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch ac.Role {
	case model.RoleGuardian:
		h.guardians.End(ac.UserID)
	case model.RoleDependent:
		h.dependents.End(ac.UserID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}
