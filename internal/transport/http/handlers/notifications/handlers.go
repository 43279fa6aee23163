package notificationshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermNotificationsRead)
	r.Route("/notifications", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(read).Get("/unread-count", h.handleUnreadCount)
		r.With(read).Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	items, err := h.Service.List(r.Context(), caller.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, items)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	count, err := h.Service.CountUnread(r.Context(), caller.UserID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	notificationID, ok := shared.PathID(w, r, "notificationID")
	if !ok {
		return
	}
	if err := h.Service.MarkRead(r.Context(), caller.UserID, notificationID); err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, map[string]bool{"read": true})
}
