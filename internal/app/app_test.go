package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/storage"
	"github.com/prperemyshlev/account-service/pkg/database"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type fileUploader struct {
	mu   sync.Mutex
	keys []string
}

func (u *fileUploader) Upload(ctx context.Context, localFilePath string) (*storage.UploadResult, error) {
	if _, err := os.Stat(localFilePath); err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	key := "users/" + filepath.Base(localFilePath)
	u.keys = append(u.keys, key)
	return &storage.UploadResult{URL: "http://files.test/media/" + key, Key: key}, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type testInfrastructure struct {
	users          repository.UserRepository
	uploader       *fileUploader
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *sdkmetric.MeterProvider
	checks         map[string]Pinger
}

func (i *testInfrastructure) Users() repository.UserRepository {
	return i.users
}

func (i *testInfrastructure) Uploader() storage.Uploader {
	return i.uploader
}

func (i *testInfrastructure) Redis() *database.Redis {
	return nil
}

func (i *testInfrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *testInfrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *testInfrastructure) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

func (i *testInfrastructure) HealthChecks() map[string]Pinger {
	return i.checks
}

func (i *testInfrastructure) Shutdown(ctx context.Context) error {
	return observability.Shutdown(ctx, i.meterProvider, i.logger)
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

type session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Suite struct {
	suite.Suite
	infra  *testInfrastructure
	app    *App
	router http.Handler
}

func TestSuite(t *testing.T) {
	suite.Run(t, new(Suite))
}

func (s *Suite) SetupTest() {
	gin.SetMode(gin.TestMode)

	meterProvider, metricsHandler, err := observability.InitTelemetry("account-service-test")
	s.Require().NoError(err)

	s.infra = &testInfrastructure{
		users:          repository.NewMemoryUserRepository(),
		uploader:       &fileUploader{},
		logger:         zap.NewNop(),
		metricsHandler: metricsHandler,
		meterProvider:  meterProvider,
		checks: map[string]Pinger{
			"store": pingFunc(func(ctx context.Context) error { return nil }),
		},
	}

	s.app, err = NewApp(s.infra, s.createTestConfig())
	s.Require().NoError(err)
	s.router = s.app.Router()
}

func (s *Suite) TearDownTest() {
	_ = s.infra.Shutdown(context.Background())
}

func (s *Suite) createTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            "0",
			ReadTimeout:     config.Duration{Duration: 15 * time.Second},
			WriteTimeout:    config.Duration{Duration: 15 * time.Second},
			ShutdownTimeout: config.Duration{Duration: 5 * time.Second},
			MaxUploadBytes:  1 << 20,
		},
		Store:   config.StoreConfig{Driver: repository.DriverMemory},
		Redis:   config.RedisConfig{Enabled: false},
		Storage: config.StorageConfig{TempDir: s.T().TempDir()},
		JWT: config.JWTConfig{
			AccessTokenSecret:  "test-access-secret-that-is-at-least-32-characters",
			AccessTokenExpiry:  config.Duration{Duration: 15 * time.Minute},
			RefreshTokenSecret: "test-refresh-secret-that-is-at-least-32-characters",
			RefreshTokenExpiry: config.Duration{Duration: 7 * 24 * time.Hour},
		},
		Security: config.SecurityConfig{
			BCryptCost:                     4,
			RevokeSessionsOnPasswordChange: true,
		},
		Cookie: config.CookieConfig{Secure: false},
		Cache:  config.CacheConfig{ProfileTTL: config.Duration{Duration: time.Minute}},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Env: "test",
	}
}

func (s *Suite) do(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *Suite) jsonRequest(method, path string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *Suite) multipartRequest(method, path string, fields map[string]string, files map[string]string) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		s.Require().NoError(err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n" + name))
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (s *Suite) register(username, email, password string) map[string]any {
	req := s.multipartRequest(http.MethodPost, "/api/v1/users/register",
		map[string]string{
			"username": username,
			"email":    email,
			"fullname": "Alice Liddell",
			"password": password,
		},
		map[string]string{"avatar": "me.png", "coverImage": "cover.png"},
	)

	rec, env := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var user map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	return user
}

func (s *Suite) login(username, password string) (*httptest.ResponseRecorder, session) {
	rec, env := s.do(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": username, "password": password}))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var sess session
	s.Require().NoError(json.Unmarshal(env.Data, &sess))
	return rec, sess
}

func (s *Suite) refresh(refreshToken string) (*httptest.ResponseRecorder, envelope) {
	req := s.jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	return s.do(req)
}

func cookieValue(rec *httptest.ResponseRecorder, name string) (*http.Cookie, bool) {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (s *Suite) TestHealth() {
	rec, _ := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"pass"}`, rec.Body.String())
}

func (s *Suite) TestHealth_DependencyDown() {
	s.infra.checks["cache"] = pingFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	s.app, _ = NewApp(s.infra, s.createTestConfig())
	s.router = s.app.Router()

	rec, _ := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), `"fail"`)
	s.Contains(rec.Body.String(), "connection refused")
}

func (s *Suite) TestRegister_Success() {
	user := s.register("Alice", "Alice@Example.com", "wonderland")

	s.Equal("alice", user["username"])
	s.Equal("alice@example.com", user["email"])
	s.Equal("Alice Liddell", user["fullname"])
	s.NotEmpty(user["id"])
	s.True(strings.HasPrefix(user["avatar"].(string), "http://files.test/media/users/"))
	s.True(strings.HasPrefix(user["coverImage"].(string), "http://files.test/media/users/"))
	s.NotContains(user, "password")
	s.NotContains(user, "passwordHash")
	s.NotContains(user, "refreshToken")

	entries, err := os.ReadDir(s.app.config.Storage.TempDir)
	s.Require().NoError(err)
	s.Empty(entries, "temp uploads should be removed")
}

func (s *Suite) TestRegister_Duplicate() {
	s.register("alice", "alice@example.com", "wonderland")

	req := s.multipartRequest(http.MethodPost, "/api/v1/users/register",
		map[string]string{
			"username": "ALICE",
			"email":    "other@example.com",
			"fullname": "Other",
			"password": "secret",
		},
		map[string]string{"avatar": "me.png"},
	)
	rec, env := s.do(req)

	s.Equal(http.StatusConflict, rec.Code)
	s.False(env.Success)
	s.Equal("User with email or username already exists", env.Message)
	s.NotNil(env.Errors)
}

func (s *Suite) TestRegister_MissingAvatar() {
	req := s.multipartRequest(http.MethodPost, "/api/v1/users/register",
		map[string]string{
			"username": "bob",
			"email":    "bob@example.com",
			"fullname": "Bob",
			"password": "secret",
		},
		nil,
	)
	rec, env := s.do(req)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Avatar file is required", env.Message)
}

func (s *Suite) TestSessionLifecycle() {
	s.register("alice", "alice@example.com", "wonderland")

	loginRec, first := s.login("alice", "wonderland")
	s.NotEmpty(first.AccessToken)
	s.NotEmpty(first.RefreshToken)

	accessCookie, ok := cookieValue(loginRec, "accessToken")
	s.Require().True(ok)
	s.Equal(first.AccessToken, accessCookie.Value)
	s.True(accessCookie.HttpOnly)
	_, ok = cookieValue(loginRec, "refreshToken")
	s.True(ok)

	rec, env := s.refresh(first.RefreshToken)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var second session
	s.Require().NoError(json.Unmarshal(env.Data, &second))
	s.NotEqual(first.AccessToken, second.AccessToken)
	s.NotEqual(first.RefreshToken, second.RefreshToken)

	rec, env = s.refresh(first.RefreshToken)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Refresh token is expired or used", env.Message)

	rec, _ = s.do(withBearer(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), second.AccessToken))
	s.Require().Equal(http.StatusOK, rec.Code)
	cleared, ok := cookieValue(rec, "refreshToken")
	s.Require().True(ok)
	s.Empty(cleared.Value)

	rec, _ = s.refresh(second.RefreshToken)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *Suite) TestLogin_Failures() {
	s.register("alice", "alice@example.com", "wonderland")

	rec, env := s.do(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"email": "alice@example.com", "password": "nope"}))
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Invalid user credentials", env.Message)

	rec, env = s.do(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "nobody", "password": "nope"}))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("User does not exist", env.Message)

	rec, env = s.do(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"password": "nope"}))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Username or email is required", env.Message)
}

func (s *Suite) TestCurrentUser() {
	s.register("alice", "alice@example.com", "wonderland")
	_, sess := s.login("alice", "wonderland")

	rec, env := s.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), sess.AccessToken))
	s.Require().Equal(http.StatusOK, rec.Code)

	var user map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	s.Equal("alice", user["username"])
	s.NotContains(user, "password")

	rec, env = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Unauthorized request", env.Message)

	rec, _ = s.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), sess.RefreshToken))
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *Suite) TestChangePassword() {
	s.register("alice", "alice@example.com", "wonderland")
	_, sess := s.login("alice", "wonderland")

	rec, env := s.do(withBearer(s.jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "wrong", "newPassword": "looking-glass"}), sess.AccessToken))
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Invalid old password", env.Message)

	rec, _ = s.do(withBearer(s.jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "wonderland", "newPassword": "looking-glass"}), sess.AccessToken))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.refresh(sess.RefreshToken)
	s.Equal(http.StatusUnauthorized, rec.Code, "sessions are revoked on password change")

	rec, _ = s.do(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "alice", "password": "wonderland"}))
	s.Equal(http.StatusUnauthorized, rec.Code)

	s.login("alice", "looking-glass")
}

func (s *Suite) TestUpdateDetailsAndImages() {
	s.register("alice", "alice@example.com", "wonderland")
	s.register("bob", "bob@example.com", "builder")
	_, sess := s.login("alice", "wonderland")

	rec, env := s.do(withBearer(s.jsonRequest(http.MethodPatch, "/api/v1/users/update-details",
		map[string]string{"fullname": "Alice Kingsleigh", "email": "Queen@Example.com"}), sess.AccessToken))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var user map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	s.Equal("Alice Kingsleigh", user["fullname"])
	s.Equal("queen@example.com", user["email"])

	rec, env = s.do(withBearer(s.jsonRequest(http.MethodPatch, "/api/v1/users/update-details",
		map[string]string{"fullname": "Alice", "email": "bob@example.com"}), sess.AccessToken))
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("User with this email already exists", env.Message)

	previousAvatar := user["avatar"]
	req := s.multipartRequest(http.MethodPatch, "/api/v1/users/avatar", nil, map[string]string{"avatar": "new.png"})
	rec, env = s.do(withBearer(req, sess.AccessToken))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	s.NotEqual(previousAvatar, user["avatar"])

	req = s.multipartRequest(http.MethodPatch, "/api/v1/users/cover-image", nil, nil)
	rec, env = s.do(withBearer(req, sess.AccessToken))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Cover image file is missing", env.Message)
}

func (s *Suite) TestWatchHistory() {
	s.register("alice", "alice@example.com", "wonderland")
	_, sess := s.login("alice", "wonderland")

	rec, env := s.do(withBearer(httptest.NewRequest(http.MethodGet, "/api/v1/users/watch-history", nil), sess.AccessToken))
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, string(env.Data))
}

func (s *Suite) TestUnknownRoute() {
	rec, env := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Route not found", env.Message)
	s.False(env.Success)
}

func (s *Suite) TestMetrics() {
	s.register("alice", "alice@example.com", "wonderland")

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "account_registrations_total")
}
