package cycleshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/reviews"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *cycles.Service
	Reviews *reviews.Service
}

func NewHandler(service *cycles.Service, reviewsSvc *reviews.Service) *Handler {
	return &Handler{Service: service, Reviews: reviewsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCyclesRead)
	admin := middleware.RequirePermission(auth.PermCyclesAdmin)

	r.Route("/cycles", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(read).Get("/active", h.handleActive)
		r.With(admin).Post("/", h.handleCreate)
		r.With(read).Get("/{cycleID}", h.handleGet)
		r.With(admin).Put("/{cycleID}", h.handleUpdate)
		r.With(admin).Post("/{cycleID}/activate", h.handleActivate)
		r.With(admin).Post("/{cycleID}/close", h.handleClose)
		r.With(admin).Post("/{cycleID}/open-reviews", h.handleOpenReviews)
	})
}

type cyclePayload struct {
	Name                    string `json:"name"`
	StartDate               string `json:"startDate"`
	EndDate                 string `json:"endDate"`
	RequiresManagerApproval bool   `json:"requiresManagerApproval"`
	EvidenceMandatory       bool   `json:"evidenceMandatory"`
}

func (p cyclePayload) toInput(w http.ResponseWriter, r *http.Request) (cycles.CycleInput, bool) {
	start, end, err := shared.ParseDateRange("startDate", p.StartDate, "endDate", p.EndDate)
	if err != nil {
		shared.Fail(w, r, err)
		return cycles.CycleInput{}, false
	}
	return cycles.CycleInput{
		Name:                    p.Name,
		StartDate:               start,
		EndDate:                 end,
		RequiresManagerApproval: p.RequiresManagerApproval,
		EvidenceMandatory:       p.EvidenceMandatory,
	}, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, list)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.Service.GetActive(r.Context())
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, cycle)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := shared.PathID(w, r, "cycleID")
	if !ok {
		return
	}
	cycle, err := h.Service.Get(r.Context(), cycleID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, cycle)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	var payload cyclePayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	in, ok := payload.toInput(w, r)
	if !ok {
		return
	}
	cycle, err := h.Service.Create(r.Context(), caller, in)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.Created(w, r, cycle)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	cycleID, ok := shared.PathID(w, r, "cycleID")
	if !ok {
		return
	}
	var payload cyclePayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	in, ok := payload.toInput(w, r)
	if !ok {
		return
	}
	cycle, err := h.Service.Update(r.Context(), caller, cycleID, in)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, cycle)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	cycleID, ok := shared.PathID(w, r, "cycleID")
	if !ok {
		return
	}
	cycle, err := h.Service.Activate(r.Context(), caller, cycleID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, cycle)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	cycleID, ok := shared.PathID(w, r, "cycleID")
	if !ok {
		return
	}
	cycle, err := h.Service.Close(r.Context(), caller, cycleID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, cycle)
}

func (h *Handler) handleOpenReviews(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	cycleID, ok := shared.PathID(w, r, "cycleID")
	if !ok {
		return
	}
	created, err := h.Reviews.OpenReviews(r.Context(), caller, cycleID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, map[string]int{"created": created})
}
