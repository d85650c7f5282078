package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/shophive/cart-service/internal/domain"
)

// AuthAPI is what the handlers need from the auth service.
type AuthAPI interface {
	Register(ctx context.Context, username, email, password string, kind domain.AccountKind) (*domain.Account, string, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*domain.Account, string, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	auth    AuthAPI
	carts   CartAPI
	timeout time.Duration
}

func NewAuthHandler(auth AuthAPI, carts CartAPI, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		carts:   carts,
		timeout: timeout,
	}
}

type RegisterRequestDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponseDTO struct {
	Token string          `json:"token"`
	User  *domain.Account `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "username, email, and password are required")
		return
	}

	account, token, err := h.auth.Register(ctx, req.Username, req.Email, req.Password, domain.AccountKind(req.Role))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	if err := h.mergeCart(ctx, r, account); err != nil {
		handleDomainError(w, err)
		return
	}

	setSessionCookie(w, token)
	respondJSON(w, http.StatusCreated, AuthResponseDTO{Token: token, User: account})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "username and password are required")
		return
	}

	account, token, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	if err := h.mergeCart(ctx, r, account); err != nil {
		handleDomainError(w, err)
		return
	}

	setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, AuthResponseDTO{Token: token, User: account})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := authTokenFromContext(r.Context())
	if token == "" {
		handleDomainError(w, domain.ErrUnauthenticated)
		return
	}

	if err := h.auth.Logout(ctx, token); err != nil {
		handleDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// mergeCart folds the visitor's anonymous cart into the freshly
// authenticated account, for account kinds that own a cart. A merge
// failure fails the whole auth request; the anonymous cart stays put so
// a retried login can pick it up.
func (h *AuthHandler) mergeCart(ctx context.Context, r *http.Request, account *domain.Account) error {
	if !account.HasCart() {
		return nil
	}

	shopper := shopperFromContext(r.Context())
	if shopper.Token == "" {
		return nil
	}

	if err := h.carts.MergeOnAuth(ctx, shopper.Token, account.ID); err != nil {
		log.Printf("merge cart for user %d failed (request %s): %v", account.ID, getRequestID(r.Context()), err)
		return err
	}
	return nil
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((24 * time.Hour).Seconds()),
	})
}
