package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/docshub/server/internal/services"
	"github.com/docshub/server/internal/storage"
)

// Пользовательские сообщения об ошибках: без внутренних идентификаторов,
// фронтенды показывают их как есть.
const (
	msgNodeUnavailable     = "Раздел недоступен"
	msgDocumentUnavailable = "Документ недоступен"
	msgInternalError       = "Внутренняя ошибка сервера"
)

// ContentHandler обрабатывает читающие запросы навигации и поиска.
type ContentHandler struct {
	content     services.ContentService
	search      services.SearchService
	tree        services.TreeService
	fileStorage storage.FileStorage
}

// NewContentHandler создает новый экземпляр ContentHandler.
func NewContentHandler(
	content services.ContentService,
	search services.SearchService,
	tree services.TreeService,
	fileStorage storage.FileStorage,
) *ContentHandler {
	return &ContentHandler{
		content:     content,
		search:      search,
		tree:        tree,
		fileStorage: fileStorage,
	}
}

// GetNavigation обрабатывает GET запрос списка корневых разделов.
func (h *ContentHandler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	roots, err := h.content.GetRoots(r.Context())
	if err != nil {
		log.Printf("[ContentHandler:GetNavigation] Ошибка получения корневых разделов: %v", err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

// GetNode обрабатывает GET запрос представления раздела.
func (h *ContentHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.content.GetNodeView(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNodeNotFound) {
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[ContentHandler:GetNode] Ошибка получения раздела %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetDocument обрабатывает GET запрос представления документа.
func (h *ContentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.content.GetDocumentView(r.Context(), id)
	if err != nil {
		// Папка по этому маршруту выглядит для пользователя так же,
		// как отсутствующий документ
		if errors.Is(err, services.ErrNodeNotFound) || errors.Is(err, services.ErrInvalidNode) {
			http.Error(w, msgDocumentUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[ContentHandler:GetDocument] Ошибка получения документа %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Search обрабатывает GET запрос поиска документов (?q=...).
func (h *ContentHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.search.Search(r.Context(), query, 0)
	if err != nil {
		log.Printf("[ContentHandler:Search] Ошибка поиска по запросу '%s': %v", query, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// DownloadDocument обрабатывает GET запрос на скачивание файла текущей версии.
func (h *ContentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.content.GetDocumentView(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNodeNotFound) || errors.Is(err, services.ErrInvalidNode) {
			http.Error(w, msgDocumentUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[ContentHandler:Download] Ошибка получения документа %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	if view.ObjectKey == nil {
		// У документа еще нет публикаций
		http.Error(w, msgDocumentUnavailable, http.StatusNotFound)
		return
	}

	fileReader, err := h.fileStorage.DownloadFile(r.Context(), *view.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.Error(w, msgDocumentUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[ContentHandler:Download] Ошибка скачивания файла документа %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	defer func() {
		if closeErr := fileReader.Close(); closeErr != nil {
			log.Printf("[ContentHandler:Download] Ошибка закрытия fileReader: %v", closeErr)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", view.Title))
	w.Header().Set("Content-Type", "application/octet-stream")

	if _, err = io.Copy(w, fileReader); err != nil {
		log.Printf("[ContentHandler:Download] Ошибка копирования файла документа %d в ответ: %v", id, err)
	}
}

// setDeliveryHandleRequest - тело запроса на сохранение идентификатора доставки.
type setDeliveryHandleRequest struct {
	Handle string `json:"handle"`
}

func (r setDeliveryHandleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Handle, validation.Required, validation.Length(1, 512)),
	)
}

// SetDeliveryHandle обрабатывает POST от бота-коллаборатора: после первой
// успешной отправки файла шлюз сообщает идентификатор, по которому те же
// байты можно переслать без повторной загрузки.
func (h *ContentHandler) SetDeliveryHandle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req setDeliveryHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, "Некорректное тело запроса: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.tree.SetDeliveryHandle(r.Context(), id, req.Handle); err != nil {
		if errors.Is(err, services.ErrVersionNotFound) {
			http.Error(w, msgDocumentUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[ContentHandler:SetDeliveryHandle] Ошибка сохранения для документа %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseIDParam извлекает числовой параметр {id} маршрута.
// При ошибке сам пишет ответ 404 и возвращает ok=false: для пользователя
// нечисловой идентификатор неотличим от отсутствующего.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, msgNodeUnavailable, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// writeJSON сериализует ответ; ошибку кодирования уже не исправить,
// только залогировать.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования JSON-ответа: %v", err)
	}
}
