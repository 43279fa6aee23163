package reportshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/reports"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports/dashboard", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermGoalsRead)).Get("/employee", h.handleEmployeeDashboard)
		r.With(middleware.RequirePermission(auth.PermGoalsManage)).Get("/manager", h.handleManagerDashboard)
		r.With(middleware.RequirePermission(auth.PermCyclesAdmin)).Get("/admin", h.handleAdminDashboard)
	})
}

func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	d, err := h.Service.Employee(r.Context(), caller)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, d)
}

func (h *Handler) handleManagerDashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	d, err := h.Service.Manager(r.Context(), caller)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, d)
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	d, err := h.Service.Admin(r.Context(), caller)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, d)
}
