package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vente/apiserver/internal/services"
)

const loginFormMaxMemory = 1 << 20

// TokenIssuer signs access tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(subjectID int, ttl time.Duration) (string, error)
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthHandler provides login and the current account endpoint.
type AuthHandler struct {
	userService *services.UserService
	tokens      TokenIssuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, tokens TokenIssuer, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAuthHandler(userService, tokens)

	r.Post("/login", handler.Login)
	r.With(authMiddleware, RequireActive).Get("/me", handler.Me)
}

// Login accepts a urlencoded or multipart username and password and returns
// a bearer token. Unknown users and wrong passwords get the same 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, loginFormMaxMemory)
	if err := r.ParseMultipartForm(loginFormMaxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), username, password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the account the request was authenticated as.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
