package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/userauth/apiserver/internal/auth"
	"github.com/userauth/apiserver/internal/logging"
	"github.com/userauth/apiserver/internal/services"
	"github.com/userauth/apiserver/internal/store"
	"github.com/userauth/apiserver/types"
)

// AuthHandler provides the register, login and current-user endpoints.
type AuthHandler struct {
	userService *services.UserService
	issuer      *auth.TokenIssuer
	logger      logging.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, issuer *auth.TokenIssuer, logger logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AuthHandler{
		userService: userService,
		issuer:      issuer,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces token authentication and injects the verified
// user id into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.issuer)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return requireAuth(issuer)
}

func requireAuth(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeFailure(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			subject, err := issuer.Verify(tokenString)
			if err != nil {
				writeFailure(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new user account and returns a signed token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid Request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeValidationErrors(w, http.StatusUnprocessableEntity, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeFailure(w, http.StatusBadRequest, "User Already Exists")
			return
		}
		h.logger.Error(r.Context(), "registration failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Server Error")
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.logger.Error(r.Context(), "token signing failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeSuccess(w, http.StatusOK, "User Created", AuthData{User: user, Token: token})
}

// Login verifies credentials and returns a fresh signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid Request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeValidationErrors(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeFailure(w, http.StatusBadRequest, "User Not Exist")
		case errors.Is(err, services.ErrBadPassword):
			writeFailure(w, http.StatusBadRequest, "Incorrect Password !")
		default:
			h.logger.Error(r.Context(), "login failed", "error", err)
			writeFailure(w, http.StatusInternalServerError, "Server Error")
		}
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.logger.Error(r.Context(), "token signing failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeSuccess(w, http.StatusOK, "Login Successful", AuthData{User: user, Token: token})
}

// Me returns the record of the authenticated user. A valid token whose
// subject no longer resolves is an internal error, since accounts are
// never deleted.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error(r.Context(), "user lookup failed", "error", err)
		}
		writeFailure(w, http.StatusInternalServerError, "Error in Fetching user")
		return
	}

	writeSuccess(w, http.StatusOK, "User Fetched", UserData{User: user})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate reports every violated field, not just the first.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate reports every violated field, not just the first.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

// AuthData is the success payload for register and login. The user's
// password hash never marshals.
type AuthData struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

// UserData is the success payload for the current-user endpoint.
type UserData struct {
	User types.User `json:"user"`
}

func writeValidationErrors(w http.ResponseWriter, status int, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, status, Response{Success: false, Message: "Input validation errors", Data: verrs})
		return
	}
	writeFailure(w, status, "Input validation errors")
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
