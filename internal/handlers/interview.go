package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"prepmate-backend/internal/interview"
	"prepmate-backend/internal/models"
)

// InterviewService is the slice of the interview service the handler
// needs; tests substitute a fake.
type InterviewService interface {
	Generate(ctx context.Context, p interview.GenerateParams) (*models.Interview, error)
	GetByID(ctx context.Context, id, requesterID bson.ObjectID) (*models.Interview, error)
	ListMine(ctx context.Context, userID bson.ObjectID) ([]models.Interview, error)
	Update(ctx context.Context, id, userID bson.ObjectID, p interview.UpdateParams) error
	Latest(ctx context.Context, excludeUser bson.ObjectID, limit int) ([]interview.Ranked, error)
}

// LeaderboardSource serves the cached public-interview ranking; the
// second return reports whether a refresh has completed yet.
type LeaderboardSource interface {
	Snapshot() ([]interview.Ranked, bool)
}

type InterviewHandler struct {
	service     InterviewService
	leaderboard LeaderboardSource
	latestLimit int
	logger      *zap.Logger
}

func NewInterviewHandler(service InterviewService, leaderboard LeaderboardSource, latestLimit int, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		service:     service,
		leaderboard: leaderboard,
		latestLimit: latestLimit,
		logger:      logger,
	}
}

type GenerateInterviewRequest struct {
	Role       string `json:"role" validate:"required"`
	Level      string `json:"level" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=behavioural technical mixed"`
	Techstack  string `json:"techstack" validate:"required"`
	Amount     int    `json:"amount" validate:"required,min=1,max=20"`
	Visibility *bool  `json:"visibility"`
}

// --- POST /interviews/generate ---

func (h *InterviewHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req GenerateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid interview parameters")
		return
	}

	techstack := splitTechstack(req.Techstack)

	iv, err := h.service.Generate(r.Context(), interview.GenerateParams{
		UserID:     userID,
		Role:       req.Role,
		Level:      req.Level,
		Type:       req.Type,
		Techstack:  techstack,
		Amount:     req.Amount,
		Visibility: req.Visibility,
	})
	if err != nil {
		h.logger.Error("interview generation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to generate interview")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "interview generated",
		"interview": iv,
	})
}

// --- GET /interviews/{id} ---

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}

	iv, err := h.service.GetByID(r.Context(), id, userID)
	if errors.Is(err, interview.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if err != nil {
		h.logger.Error("fetching interview failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, iv)
}

// --- GET /interviews/mine ---

func (h *InterviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	interviews, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing interviews failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interviews": interviews,
	})
}

// --- GET /interviews/latest ---

// Latest serves the rating-ranked public interviews from the cached
// leaderboard, computing live only before the first refresh completes.
func (h *InterviewHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	entries, fresh := h.leaderboard.Snapshot()
	if !fresh {
		var err error
		entries, err = h.service.Latest(r.Context(), userID, h.latestLimit)
		if err != nil {
			h.logger.Error("listing latest interviews failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"interviews": entries})
		return
	}

	filtered := make([]interview.Ranked, 0, len(entries))
	for _, e := range entries {
		if e.UserID == userID {
			continue
		}
		filtered = append(filtered, e)
		if len(filtered) == h.latestLimit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interviews": filtered,
	})
}

type UpdateInterviewRequest struct {
	Role       string   `json:"role"`
	Questions  []string `json:"questions" validate:"required,min=1"`
	Visibility *bool    `json:"visibility"`
}

// --- PATCH /interviews/{id} ---

func (h *InterviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathObjectID(w, chi.URLParam(r, "id"), "interview ID")
	if !ok {
		return
	}

	var req UpdateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "at least one question is required")
		return
	}

	err := h.service.Update(r.Context(), id, userID, interview.UpdateParams{
		Role:       req.Role,
		Questions:  req.Questions,
		Visibility: req.Visibility,
	})
	switch {
	case errors.Is(err, interview.ErrNotFound):
		writeError(w, http.StatusNotFound, "interview not found")
	case errors.Is(err, interview.ErrNotOwner):
		writeError(w, http.StatusForbidden, "only the interview owner can edit it")
	case errors.Is(err, interview.ErrRoleImmutable):
		writeError(w, http.StatusUnprocessableEntity, "interview role cannot be changed")
	case errors.Is(err, interview.ErrNoQuestions):
		writeError(w, http.StatusBadRequest, "at least one question is required")
	case err != nil:
		h.logger.Error("updating interview failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update interview")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "interview updated"})
	}
}

func splitTechstack(raw string) []string {
	parts := strings.Split(raw, ",")
	stack := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			stack = append(stack, p)
		}
	}
	return stack
}
