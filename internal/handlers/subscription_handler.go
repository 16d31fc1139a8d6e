package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/docshub/server/internal/middleware"
	"github.com/docshub/server/internal/services"
)

// SubscriptionHandler обрабатывает запросы подписок текущего пользователя.
type SubscriptionHandler struct {
	subscriptions services.SubscriptionService
}

// NewSubscriptionHandler создает новый экземпляр SubscriptionHandler.
func NewSubscriptionHandler(subscriptions services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// subscriptionStateResponse - состояние подписки на узел.
type subscriptionStateResponse struct {
	State services.SubscriptionState `json:"state"`
}

// toggleResponse - новое состояние прямой подписки после переключения.
type toggleResponse struct {
	Subscribed bool `json:"subscribed"`
}

// GetState обрабатывает GET запрос состояния подписки на узел.
func (h *SubscriptionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[SubHandler:GetState] Не удалось получить userID из контекста")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	nodeID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	state, err := h.subscriptions.Resolve(r.Context(), userID, nodeID)
	if err != nil {
		if errors.Is(err, services.ErrNodeNotFound) {
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[SubHandler:GetState] Ошибка разрешения подписки пользователя %d на узел %d: %v",
			userID, nodeID, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionStateResponse{State: state})
}

// Toggle обрабатывает POST запрос переключения прямой подписки.
// Узел, покрытый только подпиской на предка, переключить нельзя:
// пользователю предлагается отписаться в родительском разделе.
func (h *SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[SubHandler:Toggle] Не удалось получить userID из контекста")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	nodeID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	state, err := h.subscriptions.Resolve(r.Context(), userID, nodeID)
	if err != nil {
		if errors.Is(err, services.ErrNodeNotFound) {
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[SubHandler:Toggle] Ошибка разрешения подписки пользователя %d на узел %d: %v",
			userID, nodeID, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	if state == services.Inherited {
		http.Error(w,
			"Вы подписаны через родительский раздел. Чтобы отписаться, перейдите в родительский раздел.",
			http.StatusConflict)
		return
	}

	subscribed, err := h.subscriptions.Toggle(r.Context(), userID, nodeID)
	if err != nil {
		if errors.Is(err, services.ErrNodeNotFound) {
			http.Error(w, msgNodeUnavailable, http.StatusNotFound)
			return
		}
		log.Printf("[SubHandler:Toggle] Ошибка переключения подписки пользователя %d на узел %d: %v",
			userID, nodeID, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Subscribed: subscribed})
}
