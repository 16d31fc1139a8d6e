package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/docshub/server/internal/repository"
	"github.com/docshub/server/internal/services"
)

const (
	defaultVersionsLimit = 20
	maxVersionsLimit     = 100
)

// AdminHandler обрабатывает административные мутации дерева контента.
// Маршруты защищены middleware.RequireAdmin; сообщения об ошибках здесь
// адресованы администратору и могут быть конкретнее пользовательских.
type AdminHandler struct {
	tree services.TreeService
}

// NewAdminHandler создает новый экземпляр AdminHandler.
func NewAdminHandler(tree services.TreeService) *AdminHandler {
	return &AdminHandler{tree: tree}
}

// createNodeRequest - тело запроса на создание узла.
type createNodeRequest struct {
	Title       string  `json:"title"`
	ParentID    *int64  `json:"parent_id"`
	Order       int     `json:"order"`
	IsFolder    bool    `json:"is_folder"`
	Visible     bool    `json:"visible"`
	Description *string `json:"description"`
	Equipment   *string `json:"equipment"`
}

func (r createNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Order, validation.Min(0)),
	)
}

// CreateNode обрабатывает POST запрос на создание узла.
func (h *AdminHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, "Некорректное тело запроса: "+err.Error(), http.StatusBadRequest)
		return
	}

	node, err := h.tree.CreateNode(r.Context(), repository.CreateNodeParams{
		ParentID:    req.ParentID,
		Title:       req.Title,
		Order:       req.Order,
		IsFolder:    req.IsFolder,
		Visible:     req.Visible,
		Description: req.Description,
		Equipment:   req.Equipment,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidParent) {
			http.Error(w, "Родительский узел не найден или не является папкой", http.StatusBadRequest)
			return
		}
		log.Printf("[AdminHandler:CreateNode] Ошибка создания узла '%s': %v", req.Title, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// moveNodeRequest - тело запроса на перемещение узла.
// new_parent_id = null переносит узел в корень.
type moveNodeRequest struct {
	NewParentID *int64 `json:"new_parent_id"`
}

// MoveNode обрабатывает PATCH запрос на перемещение поддерева.
func (h *AdminHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req moveNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	if err := h.tree.MoveNode(r.Context(), id, req.NewParentID); err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidParent):
			http.Error(w, "Новый родитель не найден или не является папкой", http.StatusBadRequest)
		case errors.Is(err, services.ErrCycleDetected):
			http.Error(w, "Перемещение внутрь собственного поддерева запрещено", http.StatusConflict)
		default:
			log.Printf("[AdminHandler:MoveNode] Ошибка перемещения узла %d: %v", id, err)
			http.Error(w, msgInternalError, http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNode обрабатывает DELETE запрос на каскадное удаление поддерева.
func (h *AdminHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.tree.DeleteNode(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNodeNotFound) {
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[AdminHandler:DeleteNode] Ошибка удаления узла %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishVersion обрабатывает POST запрос на публикацию новой версии:
// файл в теле запроса, метка версии и автор - в заголовках
// X-Version-Label и X-Author (контракт потоковой загрузки, без multipart).
func (h *AdminHandler) PublishVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	label := r.Header.Get("X-Version-Label")
	if label == "" {
		http.Error(w, "Отсутствует заголовок X-Version-Label", http.StatusBadRequest)
		return
	}
	author := r.Header.Get("X-Author")

	size, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64)
	if err != nil || size <= 0 {
		http.Error(w, "Неверный или отсутствующий заголовок Content-Length", http.StatusBadRequest)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	version, err := h.tree.PublishVersion(r.Context(), id, label, author, r.Body, size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidNode):
			http.Error(w, "Публикация версии возможна только для документа", http.StatusConflict)
		default:
			log.Printf("[AdminHandler:PublishVersion] Ошибка публикации версии для узла %d: %v", id, err)
			http.Error(w, msgInternalError, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

// ListVersions обрабатывает GET запрос истории версий документа.
func (h *AdminHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	limit := parseQueryInt(r.URL.Query().Get("limit"), defaultVersionsLimit)
	if limit > maxVersionsLimit {
		limit = maxVersionsLimit
	}
	offset := parseQueryInt(r.URL.Query().Get("offset"), 0)

	versions, err := h.tree.ListVersions(r.Context(), id, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidNode):
			http.Error(w, "История версий доступна только для документа", http.StatusConflict)
		default:
			log.Printf("[AdminHandler:ListVersions] Ошибка получения версий узла %d: %v", id, err)
			http.Error(w, msgInternalError, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// Rebuild обрабатывает POST запрос на пересчет производных данных дерева.
func (h *AdminHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.tree.Rebuild(r.Context()); err != nil {
		log.Printf("[AdminHandler:Rebuild] Ошибка пересчета дерева: %v", err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseQueryInt разбирает числовой query-параметр с запасным значением.
func parseQueryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
