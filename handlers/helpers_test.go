package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/internal/applications"
	"github.com/ibtikar/ibtikar-backend/internal/authprovider"
	"github.com/ibtikar/ibtikar-backend/internal/config"
	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/messages"
	"github.com/ibtikar/ibtikar-backend/internal/payments"
	"github.com/ibtikar/ibtikar-backend/internal/projects"
	"github.com/ibtikar/ibtikar-backend/internal/refresh"
	"github.com/ibtikar/ibtikar-backend/internal/tokens"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

type testServer struct {
	router *gin.Engine
	gw     *gateway.Memory
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret-32-bytes-xxxx"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour

	gw := gateway.NewMemory()
	provider := authprovider.NewLocal(gw)
	refreshSvc := refresh.NewService(refresh.NewGatewayRepository(gw))
	blacklist := refresh.NewBlacklist(nil)

	r := gin.New()
	auth := NewAuthHandler(cfg, gw, provider, refreshSvc, blacklist)
	auth.Register(r.Group("/"))

	projectsSvc := projects.NewService(gw)
	applicationsSvc := applications.NewService(gw, projectsSvc)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(tokens.NewHSVerifier(cfg.JWT.Secret), blacklist), middleware.RequireIdentity(gw))
	NewMeHandler(gw).Register(api)
	NewProjectsHandler(projectsSvc, applicationsSvc).Register(api)
	NewPaymentsHandler(payments.NewService(gw)).Register(api)
	NewMessagesHandler(gw, messages.NewService(gw)).Register(api)

	return &testServer{router: r, gw: gw, cfg: cfg}
}

// do performs a JSON request and decodes the response body into out when
// out is non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

// signUp registers an account and returns its access token and user id.
func (ts *testServer) signUp(t *testing.T, email, name, role string) (token, id string) {
	t.Helper()
	var resp struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	w := ts.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"email": email, "password": "password-123", "displayName": name, "role": role,
	}, &resp)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, resp.User.ID
}
