package http

import (
	"SmartLinks-Backend/internal/auth"
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/engine"
	"SmartLinks-Backend/internal/protection"
	"SmartLinks-Backend/internal/repository/memory"
	"SmartLinks-Backend/internal/service"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandlers(t *testing.T) (*Server, *memory.MemStorage, *service.LinksService) {
	t.Helper()
	storage := memory.New()
	log := zap.NewNop()
	bypass := protection.BypassPolicy{}

	limiter := protection.NewRateLimiter(protection.NewMemoryWindowStore(), storage, bypass, log)
	detector := protection.NewDetector(storage, bypass, log)
	machine := protection.NewMachine(storage, time.Hour, log)
	eng := engine.New(storage, limiter, detector, machine, bypass, log)

	passwords := auth.NewPasswordServiceWithCost(4)
	links := service.NewLinksService(storage, machine, passwords, 6, log)

	return NewServer(storage, eng, links, "owner-token", log), storage, links
}

func TestRedirect_Success(t *testing.T) {
	server, _, links := newTestHandlers(t)
	_, err := links.CreateLink(context.Background(), service.CreateLinkParams{
		UserID:     1,
		CustomCode: "promo",
		PrimaryURL: "https://example.com/landing",
	})
	require.NoError(t, err)

	mux := server.SetupRoutes()
	req := httptest.NewRequest(http.MethodGet, "/promo", nil)
	req.RemoteAddr = "198.51.100.1:34567"
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/landing", rec.Header().Get("Location"))

	// A session cookie is planted for returning-visitor tracking.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestRedirect_UnknownCode(t *testing.T) {
	server, _, _ := newTestHandlers(t)

	mux := server.SetupRoutes()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.RemoteAddr = "198.51.100.1:34567"
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedirect_PasswordProtected(t *testing.T) {
	server, _, links := newTestHandlers(t)
	_, err := links.CreateLink(context.Background(), service.CreateLinkParams{
		UserID:     1,
		CustomCode: "secret",
		PrimaryURL: "https://example.com/landing",
		Password:   "hunter2",
	})
	require.NoError(t, err)
	mux := server.SetupRoutes()

	t.Run("missing_password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.RemoteAddr = "198.51.100.1:34567"
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body blockResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "password_required", body.Reason)
	})

	t.Run("wrong_password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret?password=nope", nil)
		req.RemoteAddr = "198.51.100.1:34567"
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct_password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret?password=hunter2", nil)
		req.RemoteAddr = "198.51.100.1:34567"
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
	})
}

func TestRedirect_DisabledLink(t *testing.T) {
	server, storage, _ := newTestHandlers(t)
	detected := time.Now()
	require.NoError(t, storage.SaveLink(context.Background(), &domain.Link{
		Code:                 "blocked",
		UserID:               1,
		PrimaryURL:           "https://example.com/landing",
		Rule:                 domain.RuleStandard,
		State:                domain.StateActive,
		ProtectionLevel:      5,
		AutoDisabled:         true,
		ProtectionDetectedAt: &detected,
	}))

	mux := server.SetupRoutes()
	req := httptest.NewRequest(http.MethodGet, "/blocked", nil)
	req.RemoteAddr = "198.51.100.1:34567"
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body blockResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(engine.BlockDisabled), body.Reason)
}

func TestExtractIPAddress(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote_addr_fallback",
			remoteAddr: "198.51.100.1:34567",
			want:       "198.51.100.1",
		},
		{
			name:       "x_forwarded_for_first_hop",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"},
			want:       "203.0.113.5",
		},
		{
			name:       "x_real_ip",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.6"},
			want:       "203.0.113.6",
		},
		{
			name:       "forwarded_for_beats_real_ip",
			remoteAddr: "10.0.0.1:80",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.5",
				"X-Real-IP":       "203.0.113.6",
			},
			want: "203.0.113.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractIPAddress(req))
		})
	}
}
