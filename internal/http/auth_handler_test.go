package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"chartcloud/internal/domain"
	"chartcloud/internal/oauth"
	"chartcloud/internal/repository"
	"chartcloud/internal/service"
)

type mockAccountRepo struct {
	byID        map[string]domain.Account
	byUsername  map[string]string
	byEmailType map[string]string
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		byID:        make(map[string]domain.Account),
		byUsername:  make(map[string]string),
		byEmailType: make(map[string]string),
	}
}

func (m *mockAccountRepo) Create(_ context.Context, a domain.Account) error {
	if _, ok := m.byUsername[a.Username]; ok {
		return repository.ErrDuplicate
	}
	key := a.Email + "|" + a.AccountType
	if _, ok := m.byEmailType[key]; ok {
		return repository.ErrDuplicate
	}
	m.byID[a.ID] = a
	m.byUsername[a.Username] = a.ID
	m.byEmailType[key] = a.ID
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAccountRepo) GetByUsername(_ context.Context, username string, _ bool) (domain.Account, error) {
	id, ok := m.byUsername[username]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *mockAccountRepo) GetByEmailAndType(_ context.Context, email, accountType string, _ bool) (domain.Account, error) {
	id, ok := m.byEmailType[email+"|"+accountType]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *mockAccountRepo) SetVerificationCode(_ context.Context, id, codeHash string, expiry time.Time) error {
	a, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.VerificationCodeHash = codeHash
	a.VerificationCodeExpiry = &expiry
	m.byID[id] = a
	return nil
}

func (m *mockAccountRepo) MarkVerified(_ context.Context, id, codeHash string) (bool, error) {
	a, ok := m.byID[id]
	if !ok || a.Verified || a.VerificationCodeHash != codeHash {
		return false, nil
	}
	a.Verified = true
	a.VerificationCodeHash = ""
	a.VerificationCodeExpiry = nil
	m.byID[id] = a
	return true, nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id string) error {
	a, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	delete(m.byUsername, a.Username)
	delete(m.byEmailType, a.Email+"|"+a.AccountType)
	return nil
}

func (m *mockAccountRepo) List(_ context.Context, _, _ int) ([]domain.Account, int64, error) {
	accounts := make([]domain.Account, 0, len(m.byID))
	for _, a := range m.byID {
		accounts = append(accounts, a)
	}
	return accounts, int64(len(accounts)), nil
}

func (m *mockAccountRepo) Stats(_ context.Context) (domain.AccountStats, error) {
	return domain.AccountStats{Total: int64(len(m.byID))}, nil
}

type mockCodeSender struct {
	lastTo   string
	lastCode string
	err      error
}

func (m *mockCodeSender) SendVerificationCode(_ context.Context, toEmail, code string) error {
	if m.err != nil {
		return m.err
	}
	m.lastTo = toEmail
	m.lastCode = code
	return nil
}

type mockProvider struct {
	profile oauth.Profile
	err     error
}

func (m *mockProvider) AuthURL() string { return "https://provider.example/authorize" }

func (m *mockProvider) Exchange(_ context.Context, _ string) (oauth.Profile, error) {
	return m.profile, m.err
}

type authTestEnv struct {
	router *gin.Engine
	repo   *mockAccountRepo
	sender *mockCodeSender
	github *mockProvider
	google *mockProvider
}

func setupAuthRouter(t *testing.T) *authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMockAccountRepo()
	sender := &mockCodeSender{}
	tokens := newTestTokenService()
	authSvc := service.NewAuthService(zap.NewNop(), repo, tokens, service.NewMemoryRevocationLedger(), sender, nil, "hmac-secret")
	github := &mockProvider{}
	google := &mockProvider{}
	h := NewAuthHandler(zap.NewNop(), authSvc, github, google)

	gate := AuthMiddleware(tokens, nil)

	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.PATCH("/auth/send-verification-code", gate, h.SendVerificationCode)
	r.PATCH("/auth/verify-verification-code", gate, h.VerifyVerificationCode)
	r.POST("/auth/refresh", gate, h.Refresh)
	r.POST("/auth/logout", gate, h.Logout)
	r.GET("/auth/login/github", h.GithubLogin)
	r.POST("/auth/login/github/callback", h.GithubCallback)
	r.GET("/auth/login/google", h.GoogleLogin)
	r.POST("/auth/login/google/callback", h.GoogleCallback)

	return &authTestEnv{router: r, repo: repo, sender: sender, github: github, google: google}
}

func performRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func signupAndLogin(t *testing.T, env *authTestEnv) (access, refresh string) {
	t.Helper()
	rec := performRequest(env.router, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, ok := body["token"].(map[string]any)
	if !ok {
		t.Fatalf("expected token object, got %s", rec.Body.String())
	}
	access, _ = token["access"].(string)
	refresh, _ = token["refresh"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("expected both tokens, got %s", rec.Body.String())
	}
	return access, refresh
}

func TestAuthHandlerSignupValidation(t *testing.T) {
	env := setupAuthRouter(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %s", rec.Body.String())
	}
	if _, ok := body["errors"]; !ok {
		t.Fatalf("expected field errors, got %s", rec.Body.String())
	}
}

func TestAuthHandlerSignupDuplicate(t *testing.T) {
	env := setupAuthRouter(t)
	signupAndLogin(t, env)

	rec := performRequest(env.router, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "User already exists" {
		t.Fatalf("expected duplicate message, got %s", rec.Body.String())
	}
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	env := setupAuthRouter(t)
	signupAndLogin(t, env)

	rec := performRequest(env.router, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHandlerVerificationFlow(t *testing.T) {
	env := setupAuthRouter(t)
	access, _ := signupAndLogin(t, env)

	rec := performRequest(env.router, http.MethodPatch, "/auth/send-verification-code", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.sender.lastTo != "alice@example.com" || len(env.sender.lastCode) != 6 {
		t.Fatalf("expected 6 digit code sent, got %q to %q", env.sender.lastCode, env.sender.lastTo)
	}

	rec = performRequest(env.router, http.MethodPatch, "/auth/verify-verification-code", access, map[string]string{
		"code": env.sender.lastCode,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// El segundo intento choca con la cuenta ya verificada.
	rec = performRequest(env.router, http.MethodPatch, "/auth/send-verification-code", access, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerVerifyRejectsMalformedCode(t *testing.T) {
	env := setupAuthRouter(t)
	access, _ := signupAndLogin(t, env)

	for _, code := range []string{"", "12345", "abcdef"} {
		rec := performRequest(env.router, http.MethodPatch, "/auth/verify-verification-code", access, map[string]string{
			"code": code,
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for code %q, got %d", code, rec.Code)
		}
	}
}

func TestAuthHandlerSendCodeRequiresAccessToken(t *testing.T) {
	env := setupAuthRouter(t)
	_, refresh := signupAndLogin(t, env)

	rec := performRequest(env.router, http.MethodPatch, "/auth/send-verification-code", refresh, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "Access token required" {
		t.Fatalf("expected class message, got %s", rec.Body.String())
	}
}

func TestAuthHandlerSendCodeDeliveryFailure(t *testing.T) {
	env := setupAuthRouter(t)
	access, _ := signupAndLogin(t, env)
	env.sender.err = context.DeadlineExceeded

	rec := performRequest(env.router, http.MethodPatch, "/auth/send-verification-code", access, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerRefreshAndLogout(t *testing.T) {
	env := setupAuthRouter(t)
	access, refresh := signupAndLogin(t, env)

	// El refresh exige la clase refresh.
	rec := performRequest(env.router, http.MethodPost, "/auth/refresh", access, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/refresh", refresh, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, ok := body["token"].(map[string]any)
	if !ok || token["access"] == "" {
		t.Fatalf("expected fresh access token, got %s", rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/logout", refresh, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "Logged out successfully" {
		t.Fatalf("expected logout message, got %s", rec.Body.String())
	}

	// Un refresh revocado deja de emitir access tokens.
	rec = performRequest(env.router, http.MethodPost, "/auth/refresh", refresh, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	// Y el logout repetido sigue siendo una respuesta de éxito.
	rec = performRequest(env.router, http.MethodPost, "/auth/logout", refresh, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "Already logged out" {
		t.Fatalf("expected idempotent message, got %s", rec.Body.String())
	}
}

func TestAuthHandlerGithubLoginURL(t *testing.T) {
	env := setupAuthRouter(t)

	rec := performRequest(env.router, http.MethodGet, "/auth/login/github", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["url"] != "https://provider.example/authorize" {
		t.Fatalf("expected redirect url, got %s", rec.Body.String())
	}
}

func TestAuthHandlerGithubCallback(t *testing.T) {
	env := setupAuthRouter(t)
	env.github.profile = oauth.Profile{Username: "carol", Email: "carol@github.com"}

	rec := performRequest(env.router, http.MethodPost, "/auth/login/github/callback?code=abc", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, ok := body["token"].(map[string]any)
	if !ok || token["access"] == "" || token["refresh"] == "" {
		t.Fatalf("expected token pair, got %s", rec.Body.String())
	}

	account, err := env.repo.GetByUsername(context.Background(), "carol", false)
	if err != nil {
		t.Fatalf("expected provisioned account, got %v", err)
	}
	if !account.Verified || account.AccountType != domain.AccountTypeGithub {
		t.Fatalf("expected verified github account, got %+v", account)
	}
}

func TestAuthHandlerCallbackRequiresCode(t *testing.T) {
	env := setupAuthRouter(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/login/github/callback", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandlerGoogleCallbackConflict(t *testing.T) {
	env := setupAuthRouter(t)
	signupAndLogin(t, env)
	env.google.profile = oauth.Profile{Username: "alice", Email: "alice@example.com"}

	rec := performRequest(env.router, http.MethodPost, "/auth/login/google/callback?code=abc", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}
