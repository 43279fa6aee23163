package directoryhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/directory"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *directory.Service
}

func NewHandler(service *directory.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermDirectoryRead)
	admin := middleware.RequirePermission(auth.PermDirectoryAdmin)

	r.Route("/users", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(admin).Post("/", h.handleCreate)
		r.With(read).Get("/{userID}", h.handleGet)
		r.With(admin).Put("/{userID}", h.handleUpdate)
		r.With(read).Get("/{userID}/reports", h.handleReports)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := shared.QueryIDs(r, "managerId")
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	managerID := ids[0]
	page := shared.ParsePagination(r, 100, 500)
	users, err := h.Service.ListUsers(r.Context(), directory.ListFilter{
		Status:    directory.Status(r.URL.Query().Get("status")),
		ManagerID: managerID,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, users)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.PathID(w, r, "userID")
	if !ok {
		return
	}
	user, err := h.Service.GetUser(r.Context(), userID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, user)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.PathID(w, r, "userID")
	if !ok {
		return
	}
	reports, err := h.Service.DirectReports(r.Context(), userID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, reports)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	var payload directory.UserInput
	if !shared.Decode(w, r, &payload) {
		return
	}
	user, err := h.Service.CreateUser(r.Context(), caller, payload)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.Created(w, r, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	userID, ok := shared.PathID(w, r, "userID")
	if !ok {
		return
	}
	var payload directory.UserInput
	if !shared.Decode(w, r, &payload) {
		return
	}
	user, err := h.Service.UpdateUser(r.Context(), caller, userID, payload)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, user)
}
