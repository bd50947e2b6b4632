package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"prepmate-backend/internal/feedback"
	"prepmate-backend/internal/models"
	"prepmate-backend/internal/notify"
	"prepmate-backend/internal/oracle"
)

// FeedbackService is the slice of the reconciliation engine the handler
// needs; tests substitute a fake.
type FeedbackService interface {
	Reconcile(ctx context.Context, interviewID, userID bson.ObjectID, transcript []models.TranscriptEntry) (*feedback.Result, error)
	Get(ctx context.Context, interviewID, userID bson.ObjectID) (*models.Feedback, error)
	AttachRating(ctx context.Context, ref feedback.RatingRef, rating int) (bson.ObjectID, error)
	AverageRating(ctx context.Context, interviewID bson.ObjectID) (feedback.RatingSummary, error)
	ListByInterview(ctx context.Context, interviewID bson.ObjectID) ([]models.Feedback, error)
	ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Feedback, error)
}

// InterviewSource resolves interviews for ownership checks and the
// taken-interview listing. Returns (nil, nil) when the id is unknown.
type InterviewSource interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Interview, error)
}

// UserSource resolves taker names for analytics. Returns (nil, nil)
// when the id is unknown.
type UserSource interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

type FeedbackHandler struct {
	service    FeedbackService
	interviews InterviewSource
	users      UserSource
	notifier   notify.Notifier
	logger     *zap.Logger
}

func NewFeedbackHandler(service FeedbackService, interviews InterviewSource, users UserSource, notifier notify.Notifier, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service:    service,
		interviews: interviews,
		users:      users,
		notifier:   notifier,
		logger:     logger,
	}
}

type ReconcileRequest struct {
	Transcript []models.TranscriptEntry `json:"transcript" validate:"required,min=1"`
	// SessionID identifies the voice session that produced the
	// transcript; logged for correlation only.
	SessionID string `json:"session_id"`
}

// --- POST /interviews/{id}/feedback ---

// Reconcile scores a completed session transcript and merges the result
// into the caller's single feedback record for the interview. The
// response outcome maps directly to the three user-visible states: new
// best score recorded, previous score kept, or an error.
func (h *FeedbackHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	interviewID, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "a non-empty transcript is required")
		return
	}

	result, err := h.service.Reconcile(r.Context(), interviewID, userID, req.Transcript)
	if err != nil {
		h.logger.Error("feedback reconciliation failed",
			zap.String("interview_id", interviewID.Hex()),
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		switch {
		case oracle.IsMalformed(err):
			writeError(w, http.StatusBadGateway, "scoring failed")
		case oracle.IsRetryable(err):
			writeError(w, http.StatusServiceUnavailable, "scoring temporarily unavailable, try again")
		default:
			writeError(w, http.StatusInternalServerError, "failed to save feedback")
		}
		return
	}

	status := http.StatusOK
	message := ""
	switch result.Outcome {
	case feedback.OutcomeCreated:
		status = http.StatusCreated
		message = "new best score recorded"
	case feedback.OutcomeUpdated:
		message = "new best score recorded"
	case feedback.OutcomeRetained:
		message = "previous score kept (new attempt scored lower)"
	}

	if result.Outcome != feedback.OutcomeRetained {
		// Best-effort, off the request path.
		go func(id bson.ObjectID) {
			msg := fmt.Sprintf("New best score recorded for feedback %s", id.Hex())
			if err := h.notifier.Publish(context.Background(), msg); err != nil {
				h.logger.Warn("publishing notification failed", zap.Error(err))
			}
		}(result.FeedbackID)
	}

	writeJSON(w, status, map[string]interface{}{
		"message": message,
		"result":  result,
	})
}

// --- GET /interviews/{id}/feedback ---

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	interviewID, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}

	fb, err := h.service.Get(r.Context(), interviewID, userID)
	if errors.Is(err, feedback.ErrFeedbackNotFound) {
		writeError(w, http.StatusNotFound, "no feedback for this interview yet")
		return
	}
	if err != nil {
		h.logger.Error("fetching feedback failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

type AttachRatingRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// --- POST /feedback/{id}/rating ---

func (h *FeedbackHandler) RateByFeedbackID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	feedbackID, ok := pathObjectID(w, chi.URLParam(r, "id"), "feedback ID")
	if !ok {
		return
	}
	h.attachRating(w, r, feedback.RatingRef{FeedbackID: feedbackID, UserID: userID})
}

// --- POST /interviews/{id}/rating ---

// RateByInterview resolves the caller's feedback record for the
// interview and attaches the rating to it.
func (h *FeedbackHandler) RateByInterview(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	interviewID, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}
	h.attachRating(w, r, feedback.RatingRef{InterviewID: interviewID, UserID: userID})
}

func (h *FeedbackHandler) attachRating(w http.ResponseWriter, r *http.Request, ref feedback.RatingRef) {
	var req AttachRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	id, err := h.service.AttachRating(r.Context(), ref, req.Rating)
	switch {
	case errors.Is(err, feedback.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
	case errors.Is(err, feedback.ErrFeedbackNotFound):
		writeError(w, http.StatusNotFound, "feedback not found")
	case err != nil:
		h.logger.Error("attaching rating failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save rating")
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "rating saved",
			"feedback_id": id,
		})
	}
}

// --- GET /interviews/{id}/rating ---

func (h *FeedbackHandler) AverageRating(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	interviewID, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}

	summary, err := h.service.AverageRating(r.Context(), interviewID)
	if err != nil {
		h.logger.Error("computing average rating failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// AnalyticsEntry is one interview attempt with its taker's name.
type AnalyticsEntry struct {
	models.Feedback
	UserName string `json:"user_name"`
}

// --- GET /interviews/{id}/analytics ---

// Analytics lists every attempt at an interview with the taker's name,
// highest score first. Owner only.
func (h *FeedbackHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	interviewID, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}

	iv, err := h.interviews.FindByID(r.Context(), interviewID)
	if err != nil {
		h.logger.Error("fetching interview failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if iv == nil {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if iv.UserID != userID {
		writeError(w, http.StatusForbidden, "only the interview owner can view analytics")
		return
	}

	feedbacks, err := h.service.ListByInterview(r.Context(), interviewID)
	if err != nil {
		h.logger.Error("listing interview feedback failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	attempts := make([]AnalyticsEntry, 0, len(feedbacks))
	scoreSum := 0
	for _, fb := range feedbacks {
		name := "Unknown User"
		if u, err := h.users.FindByID(r.Context(), fb.UserID); err == nil && u != nil && u.Name != "" {
			name = u.Name
		}
		attempts = append(attempts, AnalyticsEntry{Feedback: fb, UserName: name})
		scoreSum += fb.TotalScore
	}

	averageScore := 0
	if len(attempts) > 0 {
		averageScore = int(math.Round(float64(scoreSum) / float64(len(attempts))))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_attempts": len(attempts),
		"average_score":  averageScore,
		"attempts":       attempts,
	})
}

// --- GET /interviews/taken ---

// TakenInterviews lists the interviews the caller has earned feedback
// on, newest first, excluding ones the caller created.
func (h *FeedbackHandler) TakenInterviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	feedbacks, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing user feedback failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// One feedback record per (interview, user), so ids never repeat.
	taken := make([]models.Interview, 0, len(feedbacks))
	for _, fb := range feedbacks {
		iv, err := h.interviews.FindByID(r.Context(), fb.InterviewID)
		if err != nil {
			h.logger.Error("fetching interview failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if iv == nil || iv.UserID == userID {
			continue
		}
		taken = append(taken, *iv)
	}
	sort.SliceStable(taken, func(i, j int) bool {
		return taken[i].CreatedAt.After(taken[j].CreatedAt)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interviews": taken,
	})
}
