package reviewshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/reviews"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *reviews.Service
}

func NewHandler(service *reviews.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermReviewsRead)
	write := middleware.RequirePermission(auth.PermReviewsWrite)
	manage := middleware.RequirePermission(auth.PermReviewsManage)

	r.Route("/reviews", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/self-assessment", h.handleSubmitSelfAssessment)
		r.With(read).Get("/{reviewID}", h.handleGet)
		r.With(write).Put("/{reviewID}/self-assessment", h.handleUpdateDraft)
		r.With(manage).Post("/{reviewID}/manager-review", h.handleManagerReview)
		r.With(write).Post("/{reviewID}/acknowledge", h.handleAcknowledge)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	ids, err := shared.QueryIDs(r, "cycleId", "userId")
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	cycleID, userID := ids[0], ids[1]

	filter := reviews.ListFilter{CycleID: cycleID, Status: reviews.Status(r.URL.Query().Get("status"))}
	if userID != 0 {
		filter.UserIDs = []int64{userID}
	}
	page := shared.ParsePagination(r, 50, 200)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, err := h.Service.List(r.Context(), caller, filter)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	reviewID, ok := shared.PathID(w, r, "reviewID")
	if !ok {
		return
	}
	review, err := h.Service.Get(r.Context(), caller, reviewID)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, review)
}

func (h *Handler) handleSubmitSelfAssessment(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	var payload reviews.SelfAssessment
	if !shared.Decode(w, r, &payload) {
		return
	}
	review, err := h.Service.SubmitSelfAssessment(r.Context(), caller, payload)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.Created(w, r, review)
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	reviewID, ok := shared.PathID(w, r, "reviewID")
	if !ok {
		return
	}
	var payload struct {
		Text   string `json:"text"`
		Rating int    `json:"rating"`
	}
	if !shared.Decode(w, r, &payload) {
		return
	}
	review, err := h.Service.UpdateSelfAssessmentDraft(r.Context(), caller, reviewID, payload.Text, payload.Rating)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, review)
}

func (h *Handler) handleManagerReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	reviewID, ok := shared.PathID(w, r, "reviewID")
	if !ok {
		return
	}
	var payload reviews.ManagerReview
	if !shared.Decode(w, r, &payload) {
		return
	}
	review, err := h.Service.SubmitManagerReview(r.Context(), caller, reviewID, payload)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, review)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	reviewID, ok := shared.PathID(w, r, "reviewID")
	if !ok {
		return
	}
	var payload struct {
		Response string `json:"response"`
	}
	if !shared.Decode(w, r, &payload) {
		return
	}
	review, err := h.Service.AcknowledgeReview(r.Context(), caller, reviewID, payload.Response)
	if err != nil {
		shared.Fail(w, r, err)
		return
	}
	shared.OK(w, r, review)
}
