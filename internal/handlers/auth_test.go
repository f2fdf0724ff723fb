package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/userauth/apiserver/internal/auth"
	"github.com/userauth/apiserver/internal/services"
	"github.com/userauth/apiserver/internal/store"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	issuer, err := auth.NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	userService := services.NewUserService(store.NewMemoryUserStore(), nil, nil)
	handler := NewAuthHandler(userService, issuer, nil)

	router := chi.NewRouter()
	router.Get("/", Index("memory"))
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, handler)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func register(t *testing.T, router http.Handler, username, email, password string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
}

func login(t *testing.T, router http.Handler, email, password string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

func me(t *testing.T, router http.Handler, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(t, router, http.MethodGet, "/api/auth/me", nil, header)
}

func dataUser(t *testing.T, env envelope) map[string]any {
	t.Helper()
	user, ok := env.Data["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user in data: %+v", env.Data)
	}
	return user
}

func TestRegisterLoginMe(t *testing.T) {
	router := newTestRouter(t)

	rec, env := register(t, router, "ana", "ana@x.com", "secret1")
	if rec.Code != http.StatusOK {
		t.Fatalf("register status: %d", rec.Code)
	}
	if !env.Success || env.Message != "User Created" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	user := dataUser(t, env)
	if user["email"] != "ana@x.com" {
		t.Fatalf("unexpected email: %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash leaked in response")
	}
	registerToken, _ := env.Data["token"].(string)
	if registerToken == "" {
		t.Fatal("expected non-empty token")
	}

	rec, env = register(t, router, "ana", "ana@x.com", "secret1")
	if rec.Code != http.StatusBadRequest || env.Message != "User Already Exists" {
		t.Fatalf("duplicate register: %d %+v", rec.Code, env)
	}

	rec, env = login(t, router, "ana@x.com", "wrongpw")
	if rec.Code != http.StatusBadRequest || env.Message != "Incorrect Password !" {
		t.Fatalf("wrong password login: %d %+v", rec.Code, env)
	}

	rec, env = login(t, router, "ana@x.com", "secret1")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("login: %d %+v", rec.Code, env)
	}
	loginToken, _ := env.Data["token"].(string)
	if loginToken == "" {
		t.Fatal("expected login token")
	}

	rec, env = me(t, router, loginToken)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("me: %d %+v", rec.Code, env)
	}
	if got := dataUser(t, env)["id"]; got != user["id"] {
		t.Fatalf("me returned id %v, registered %v", got, user["id"])
	}
}

func TestRegisterValidationListsEveryField(t *testing.T) {
	router := newTestRouter(t)

	rec, env := register(t, router, "", "not-an-email", "short")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", rec.Code)
	}
	if env.Success || env.Message != "Input validation errors" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := env.Data[field]; !ok {
			t.Fatalf("expected violation for %q, got %+v", field, env.Data)
		}
	}
}

func TestLoginValidation(t *testing.T) {
	router := newTestRouter(t)

	rec, env := login(t, router, "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	for _, field := range []string{"email", "password"} {
		if _, ok := env.Data[field]; !ok {
			t.Fatalf("expected violation for %q, got %+v", field, env.Data)
		}
	}
}

func TestLoginUnknownUser(t *testing.T) {
	router := newTestRouter(t)

	rec, env := login(t, router, "ghost@x.com", "secret1")
	if rec.Code != http.StatusBadRequest || env.Message != "User Not Exist" {
		t.Fatalf("unknown user login: %d %+v", rec.Code, env)
	}
}

func TestMeRejectsBadTokens(t *testing.T) {
	router := newTestRouter(t)

	rec, env := register(t, router, "ana", "ana@x.com", "secret1")
	if rec.Code != http.StatusOK {
		t.Fatalf("register status: %d", rec.Code)
	}
	token, _ := env.Data["token"].(string)

	if rec, _ := me(t, router, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status: %d", rec.Code)
	}

	tampered := token[:len(token)-2] + "xx"
	if tampered == token {
		tampered = token[:len(token)-2] + "yy"
	}
	if rec, _ := me(t, router, tampered); rec.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token status: %d", rec.Code)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "some-user",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	if rec, _ := me(t, router, expired); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status: %d", rec.Code)
	}
}

func TestIndex(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var info IndexInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Message == "" || info.Database != "memory" || info.Usage == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
}
