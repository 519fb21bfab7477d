package http

import (
	"SmartLinks-Backend/internal/engine"
	"SmartLinks-Backend/internal/metrics"
	"SmartLinks-Backend/internal/repository"
	"SmartLinks-Backend/internal/service"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"SmartLinks-Backend/pkg/useragent"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sessionCookie идентифицирует сессию посетителя между кликами
const sessionCookie = "slsession"

// RedirectHandler обработчик редиректов
type RedirectHandler struct {
	engine     *engine.Engine
	links      *service.LinksService
	ownerToken string
	log        *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(eng *engine.Engine, links *service.LinksService, ownerToken string, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		engine:     eng,
		links:      links,
		ownerToken: ownerToken,
		log:        log,
	}
}

// blockResponse тело ответа для заблокированного клика
type blockResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// HandleRedirect обрабатывает клик по коду ссылки
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	// Извлекаем код из URL path
	code := strings.TrimPrefix(r.URL.Path, "/")

	// Проверяем, что это не системные endpoints
	if code == "" || strings.HasPrefix(code, "api/") ||
		strings.HasPrefix(code, "health") || strings.HasPrefix(code, "ready") ||
		strings.HasPrefix(code, "metrics") {
		http.NotFound(w, r)
		return
	}

	ipAddress := extractIPAddress(r)
	userAgent := r.UserAgent()
	sessionID := h.ensureSession(w, r)
	client := useragent.Classify(userAgent)

	req := engine.ClickRequest{
		Code:           code,
		IP:             ipAddress,
		SessionID:      sessionID,
		UserAgent:      userAgent,
		Referrer:       extractReferrer(r),
		Device:         client.DeviceType,
		Browser:        client.Browser,
		OS:             client.OS,
		LoadTestHeader: r.Header.Get("X-Load-Test"),
		IsOwner:        h.ownerToken != "" && r.Header.Get("X-Owner-Token") == h.ownerToken,
	}

	// Защищенные паролем ссылки требуют пароль до запуска пайплайна
	if err := h.checkPassword(w, r, code); err != nil {
		return
	}

	result, err := h.engine.HandleClick(r.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.log.Debug("code not found", zap.String("code", code))
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to process redirect", zap.String("code", code), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !result.Allowed {
		metrics.BlockedTotal.WithLabelValues(string(result.Reason)).Inc()
		h.writeBlocked(w, result.Reason)
		return
	}

	metrics.RedirectsTotal.WithLabelValues(string(result.Link.Rule), string(result.Tier)).Inc()

	h.log.Info("successful redirect",
		zap.String("code", code),
		zap.String("target_url", result.TargetURL),
		zap.String("tier", string(result.Tier)),
		zap.Bool("suspicious", result.Suspicious),
		zap.String("device_type", client.DeviceType))

	http.Redirect(w, r, result.TargetURL, http.StatusFound)
}

// checkPassword проверяет пароль защищенной ссылки из query параметра
func (h *RedirectHandler) checkPassword(w http.ResponseWriter, r *http.Request, code string) error {
	link, err := h.links.GetLink(r.Context(), code)
	if err != nil {
		// Неизвестный код обработает пайплайн
		return nil
	}

	err = h.links.VerifyPassword(link, r.URL.Query().Get("password"))
	if err == nil {
		return nil
	}

	status := http.StatusUnauthorized
	reason := "password_required"
	if errors.Is(err, service.ErrWrongPassword) {
		reason = "wrong_password"
	}
	writeJSON(w, status, blockResponse{Error: "This link is password protected", Reason: reason})
	return err
}

// writeBlocked отдает JSON с причиной блокировки и подходящим статусом
func (h *RedirectHandler) writeBlocked(w http.ResponseWriter, reason engine.BlockReason) {
	var (
		status  int
		message string
	)

	switch reason {
	case engine.BlockRateLimited, engine.BlockHourlyLimited:
		status = http.StatusTooManyRequests
		message = "You're making requests too quickly. Please wait a moment and try again."
		w.Header().Set("Retry-After", "60")
	case engine.BlockBurstAttack:
		status = http.StatusTooManyRequests
		message = "Suspicious activity detected from your connection."
	case engine.BlockDisabled:
		status = http.StatusForbidden
		message = "This link has been automatically disabled due to detected attacks."
	case engine.BlockTemporaryDisabled:
		status = http.StatusForbidden
		message = "This link is temporarily disabled due to unusual traffic patterns. Please try again later."
	case engine.BlockCaptchaRequired:
		status = http.StatusForbidden
		message = "Please verify you're human to access this link."
	case engine.BlockLinkExpired:
		status = http.StatusNotFound
		message = "This link has expired."
	case engine.BlockLinkInactive:
		status = http.StatusGone
		message = "This link became inactive due to decay or abnormal behavior."
	default:
		status = http.StatusForbidden
		message = "This link is currently unavailable."
	}

	writeJSON(w, status, blockResponse{Error: message, Reason: string(reason)})
}

// ensureSession возвращает ID сессии из cookie или создает новую
func (h *RedirectHandler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

// extractReferrer извлекает источник перехода: сначала URL параметры
// (надежнее для мобильных приложений), затем HTTP Referer
func extractReferrer(r *http.Request) string {
	for _, param := range []string{"ref", "source", "utm_source"} {
		if v := r.URL.Query().Get(param); v != "" {
			return truncate(v, 500)
		}
	}
	return truncate(r.Referer(), 500)
}

// extractIPAddress извлекает IP адрес из запроса с учетом прокси
func extractIPAddress(r *http.Request) string {
	// Проверяем заголовки прокси в порядке приоритета
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// X-Forwarded-For может содержать список IP через запятую
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	// Fallback к RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
