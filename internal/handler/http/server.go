package http

import (
	"SmartLinks-Backend/internal/engine"
	"SmartLinks-Backend/internal/metrics"
	"SmartLinks-Backend/internal/repository"
	"SmartLinks-Backend/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	healthHandler   *HealthHandler
	log             *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	storage repository.Storage,
	clickEngine *engine.Engine,
	linksService *service.LinksService,
	ownerToken string,
	log *zap.Logger,
) *Server {
	// Создаем handlers
	linksHandler := NewLinksHandler(linksService, ownerToken, log)
	redirectHandler := NewRedirectHandler(clickEngine, linksService, ownerToken, log)
	healthHandler := NewHealthHandler(storage, log)

	return &Server{
		linksHandler:    linksHandler,
		redirectHandler: redirectHandler,
		healthHandler:   healthHandler,
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks (без аутентификации)
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)

	// Prometheus метрики
	mux.Handle("/metrics", metrics.Handler())

	// Операторский API (с токеном владельца)
	mux.HandleFunc("/api/links", s.linksHandler.HandleLinks)
	mux.HandleFunc("/api/links/", s.linksHandler.HandleLinkAction)

	// Redirect endpoint - должен быть последним
	mux.HandleFunc("/", s.redirectHandler.HandleRedirect)

	return mux
}
