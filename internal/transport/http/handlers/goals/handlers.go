package goalshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/workflow"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *goals.Service
}

func NewHandler(service *goals.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermGoalsRead)
	write := middleware.RequirePermission(auth.PermGoalsWrite)
	manage := middleware.RequirePermission(auth.PermGoalsManage)

	r.Route("/goals", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{goalID}", h.handleGet)
		r.With(write).Put("/{goalID}", h.handleUpdate)
		r.With(write).Delete("/{goalID}", h.handleDelete)
		r.With(read).Get("/{goalID}/approvals", h.handleListApprovals)
		r.With(write).Post("/{goalID}/complete", h.handleSubmitCompletion)
		r.With(write).Post("/{goalID}/progress", h.handleAddProgress)
		r.With(manage).Post("/{goalID}/approve", h.handleApprove)
		r.With(manage).Post("/{goalID}/request-changes", h.handleRequestChanges)
		r.With(manage).Post("/{goalID}/verify-evidence", h.handleVerifyEvidence)
		r.With(manage).Post("/{goalID}/approve-completion", h.handleApproveCompletion)
		r.With(manage).Post("/{goalID}/request-evidence", h.handleRequestEvidence)
		r.With(manage).Post("/{goalID}/reject-completion", h.handleRejectCompletion)
	})
}

type goalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	ManagerID   int64  `json:"managerId"`
}

func (p goalPayload) toInput(w http.ResponseWriter, r *http.Request) (goals.GoalInput, bool) {
	start, end, err := shared.ParseDateRange("startDate", p.StartDate, "endDate", p.EndDate)
	if err != nil {
		shared.Fail(w, r, err)
		return goals.GoalInput{}, false
	}
	return goals.GoalInput{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Priority:    workflow.Priority(p.Priority),
		StartDate:   start,
		EndDate:     end,
		ManagerID:   p.ManagerID,
	}, true
}

type commentPayload struct {
	Comments string `json:"comments"`
}

type reasonPayload struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	ids, err := shared.QueryIDs(r, "ownerId")
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	ownerID := ids[0]
	page := shared.ParsePagination(r, 50, 200)
	list, err := h.Service.List(r.Context(), caller, goals.ListFilter{
		OwnerID: ownerID,
		Status:  goals.Status(r.URL.Query().Get("status")),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	var payload goalPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	in, ok := payload.toInput(w, r)
	if !ok {
		return
	}
	goal, err := h.Service.Create(r.Context(), caller, in)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.Created(w, r, goal)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	goalID, ok := shared.PathID(w, r, "goalID")
	if !ok {
		return
	}
	goal, err := h.Service.Get(r.Context(), caller, goalID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, goal)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	goalID, ok := shared.PathID(w, r, "goalID")
	if !ok {
		return
	}
	var payload goalPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	in, ok := payload.toInput(w, r)
	if !ok {
		return
	}
	goal, err := h.Service.Update(r.Context(), caller, goalID, in)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, goal)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.Delete(r.Context(), caller, goalID)
	})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.simple(w, r, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.Approve(r.Context(), caller, goalID)
	})
}

func (h *Handler) handleRequestChanges(w http.ResponseWriter, r *http.Request) {
	var payload commentPayload
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.RequestChanges(r.Context(), caller, goalID, payload.Comments)
	})
}

func (h *Handler) handleSubmitCompletion(w http.ResponseWriter, r *http.Request) {
	var payload goals.Evidence
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.SubmitCompletion(r.Context(), caller, goalID, payload)
	})
}

func (h *Handler) handleVerifyEvidence(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status goals.VerificationStatus `json:"status"`
		Notes  string                   `json:"notes"`
	}
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.VerifyEvidence(r.Context(), caller, goalID, payload.Status, payload.Notes)
	})
}

func (h *Handler) handleApproveCompletion(w http.ResponseWriter, r *http.Request) {
	var payload commentPayload
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.ApproveCompletion(r.Context(), caller, goalID, payload.Comments)
	})
}

func (h *Handler) handleRequestEvidence(w http.ResponseWriter, r *http.Request) {
	var payload reasonPayload
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.RequestAdditionalEvidence(r.Context(), caller, goalID, payload.Reason)
	})
}

func (h *Handler) handleRejectCompletion(w http.ResponseWriter, r *http.Request) {
	var payload reasonPayload
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.RejectCompletion(r.Context(), caller, goalID, payload.Reason)
	})
}

func (h *Handler) handleAddProgress(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Note string `json:"note"`
	}
	h.withBody(w, r, &payload, func(caller auth.Caller, goalID int64) (goals.Goal, error) {
		return h.Service.AddProgressNote(r.Context(), caller, goalID, payload.Note)
	})
}

func (h *Handler) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	goalID, ok := shared.PathID(w, r, "goalID")
	if !ok {
		return
	}
	approvals, err := h.Service.ListApprovals(r.Context(), caller, goalID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, approvals)
}

func (h *Handler) simple(w http.ResponseWriter, r *http.Request, op func(auth.Caller, int64) (goals.Goal, error)) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	goalID, ok := shared.PathID(w, r, "goalID")
	if !ok {
		return
	}
	goal, err := op(caller, goalID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, goal)
}

func (h *Handler) withBody(w http.ResponseWriter, r *http.Request, payload any, op func(auth.Caller, int64) (goals.Goal, error)) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	goalID, ok := shared.PathID(w, r, "goalID")
	if !ok {
		return
	}
	if !shared.Decode(w, r, payload) {
		return
	}
	goal, err := op(caller, goalID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, goal)
}
