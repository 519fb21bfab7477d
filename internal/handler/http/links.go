package http

import (
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/repository"
	"SmartLinks-Backend/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultOwnerID владелец по умолчанию (single-tenant режим, см. SeedData)
const defaultOwnerID int64 = 1

// LinksHandler операторский API управления ссылками
type LinksHandler struct {
	links      *service.LinksService
	ownerToken string
	log        *zap.Logger
}

// NewLinksHandler создает новый обработчик операторского API
func NewLinksHandler(links *service.LinksService, ownerToken string, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		links:      links,
		ownerToken: ownerToken,
		log:        log,
	}
}

// createLinkRequest тело запроса на создание ссылки
type createLinkRequest struct {
	Code         string     `json:"code,omitempty"`
	PrimaryURL   string     `json:"primary_url"`
	ReturningURL string     `json:"returning_url,omitempty"`
	CTAURL       string     `json:"cta_url,omitempty"`
	Rule         string     `json:"rule,omitempty"`
	Password     string     `json:"password,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ProfileID    *int64     `json:"profile_id,omitempty"`
}

// HandleLinks маршрутизирует POST (создание) и GET (список) на /api/links
func (h *LinksHandler) HandleLinks(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LinksHandler) list(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.ListLinks(r.Context(), defaultOwnerID)
	if err != nil {
		h.log.Error("failed to list links", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	if links == nil {
		links = []*domain.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *LinksHandler) create(w http.ResponseWriter, r *http.Request) {

	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	link, err := h.links.CreateLink(r.Context(), service.CreateLinkParams{
		UserID:       defaultOwnerID, // TODO: брать владельца из auth контекста когда появятся multi-user токены
		CustomCode:   req.Code,
		PrimaryURL:   req.PrimaryURL,
		ReturningURL: req.ReturningURL,
		CTAURL:       req.CTAURL,
		Rule:         req.Rule,
		Password:     req.Password,
		ExpiresAt:    req.ExpiresAt,
		ProfileID:    req.ProfileID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid destination URL, must be http or https"})
		case errors.Is(err, service.ErrInvalidRule):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unknown routing rule, expected standard or progression"})
		case errors.Is(err, repository.ErrCodeExists):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "Code already taken"})
		default:
			h.log.Error("failed to create link", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		}
		return
	}

	h.log.Info("link created",
		zap.String("code", link.Code),
		zap.String("rule", string(link.Rule)))

	writeJSON(w, http.StatusCreated, link)
}

// HandleLinkAction маршрутизирует GET /api/links/{code}/stats и POST /api/links/{code}/recover
func (h *LinksHandler) HandleLinkAction(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/links/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	code, action := parts[0], parts[1]

	switch {
	case action == "stats" && r.Method == http.MethodGet:
		h.stats(w, r, code)
	case action == "recover" && r.Method == http.MethodPost:
		h.recover(w, r, code)
	case action == "stats" || action == "recover":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *LinksHandler) stats(w http.ResponseWriter, r *http.Request, code string) {
	stats, err := h.links.GetStats(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to load link stats", zap.String("code", code), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *LinksHandler) recover(w http.ResponseWriter, r *http.Request, code string) {
	if err := h.links.RecoverLink(r.Context(), code); err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to recover link", zap.String("code", code), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recovered", "code": code})
}

// authorize проверяет операторский токен
func (h *LinksHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.ownerToken == "" || r.Header.Get("X-Owner-Token") == h.ownerToken {
		return true
	}
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid or missing owner token"})
	return false
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
