package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"prepmate-backend/internal/repository"
)

type UserHandler struct {
	userRepo *repository.UserRepo
	logger   *zap.Logger
}

func NewUserHandler(userRepo *repository.UserRepo, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		logger:   logger,
	}
}

// --- GET /user/status ---

func (h *UserHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("finding user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":                user.Email,
		"name":                 user.Name,
		"onboarding_completed": user.OnboardingCompleted,
	})
}

// --- PATCH /user/onboarding ---

func (h *UserHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.userRepo.UpdateOnboarding(r.Context(), userID, true); err != nil {
		h.logger.Error("updating onboarding failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update onboarding status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "onboarding marked as completed",
	})
}
