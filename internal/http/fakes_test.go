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
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"authsvc/internal/domain"
	"authsvc/internal/metrics"
	"authsvc/internal/repository"
	"authsvc/internal/service"
)

type memUserRepo struct {
	byID    map[string]domain.User
	byEmail map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]domain.User{}, byEmail: map[string]string{}}
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *memUserRepo) Update(_ context.Context, id string, upd domain.UserUpdate) (domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	if upd.Email != nil && *upd.Email != user.Email {
		if _, taken := m.byEmail[*upd.Email]; taken {
			return domain.User{}, repository.ErrEmailTaken
		}
		delete(m.byEmail, user.Email)
		user.Email = *upd.Email
		m.byEmail[user.Email] = id
	}
	if upd.Name != nil {
		name := *upd.Name
		user.Name = &name
		if name == "" {
			user.Name = nil
		}
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}
	if upd.EmailVerified != nil {
		user.EmailVerified = *upd.EmailVerified
	}
	m.byID[id] = user
	return user, nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	user, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byEmail, user.Email)
	return nil
}

type memTokenRepo struct {
	tokens map[string]domain.SingleUseToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]domain.SingleUseToken{}}
}

func tokenKey(purpose domain.TokenPurpose, hash string) string {
	return string(purpose) + ":" + hash
}

func (m *memTokenRepo) DeleteAllForUser(_ context.Context, userID string, purpose domain.TokenPurpose) error {
	for k, tok := range m.tokens {
		if tok.UserID == userID && tok.Purpose == purpose {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memTokenRepo) Insert(_ context.Context, tok domain.SingleUseToken) error {
	m.tokens[tokenKey(tok.Purpose, tok.TokenHash)] = tok
	return nil
}

func (m *memTokenRepo) FindByHash(_ context.Context, hash string, purpose domain.TokenPurpose) (domain.SingleUseToken, error) {
	tok, ok := m.tokens[tokenKey(purpose, hash)]
	if !ok {
		return domain.SingleUseToken{}, repository.ErrNotFound
	}
	return tok, nil
}

func (m *memTokenRepo) DeleteByHash(_ context.Context, hash string, purpose domain.TokenPurpose) (bool, error) {
	k := tokenKey(purpose, hash)
	if _, ok := m.tokens[k]; !ok {
		return false, nil
	}
	delete(m.tokens, k)
	return true, nil
}

func (m *memTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, tok := range m.tokens {
		if !now.Before(tok.ExpiresAt) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

// captureSender guarda el ultimo token enviado por tipo de correo.
type captureSender struct {
	verification map[string]string
	reset        map[string]string
	err          error
}

func newCaptureSender() *captureSender {
	return &captureSender{verification: map[string]string{}, reset: map[string]string{}}
}

func (s *captureSender) SendVerificationEmail(_ context.Context, to, token string) error {
	if s.err != nil {
		return s.err
	}
	s.verification[to] = token
	return nil
}

func (s *captureSender) SendPasswordResetEmail(_ context.Context, to, token string) error {
	if s.err != nil {
		return s.err
	}
	s.reset[to] = token
	return nil
}

type testServer struct {
	router  *gin.Engine
	users   *memUserRepo
	tokens  *memTokenRepo
	mailer  *captureSender
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	mailer := newCaptureSender()
	m := metrics.New()

	jwtSvc, err := service.NewJWTService("http-test-secret", "authsvc-test")
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}
	svc := service.NewAuthService(
		zap.NewNop(),
		users,
		service.NewTokenStore(tokens),
		service.NewBcryptHasher(bcrypt.MinCost),
		jwtSvc,
		mailer,
		service.NewMemoryRateLimiter(time.Minute, 3),
		m,
	)
	router := NewRouter(
		zap.NewNop(),
		m,
		svc,
		NewAuthHandler(zap.NewNop(), svc, true),
		NewUserHandler(zap.NewNop(), svc, true),
	)
	return &testServer{router: router, users: users, tokens: tokens, mailer: mailer, metrics: m}
}

type requestOption func(*http.Request)

func withSession(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
}

func withBearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func performRequest(r http.Handler, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

// register da de alta un usuario y devuelve el token de sesion del cookie.
func (s *testServer) register(t *testing.T, email, password string) string {
	t.Helper()
	rec := performRequest(s.router, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" {
		t.Fatalf("register: expected session cookie")
	}
	return cookie.Value
}
