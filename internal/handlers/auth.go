package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"prepmate-backend/internal/config"
	"prepmate-backend/internal/models"
	"prepmate-backend/internal/repository"
)

// AuthHandler implements passwordless magic-link login: a single-use
// token is emailed to the user; verifying it mints a JWT session.
type AuthHandler struct {
	tokenRepo *repository.AuthTokenRepo
	userRepo  *repository.UserRepo
	cfg       *config.Config
	logger    *zap.Logger
}

func NewAuthHandler(tokenRepo *repository.AuthTokenRepo, userRepo *repository.UserRepo, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

type RequestLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

type VerifyResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// --- POST /auth/request ---

func (h *AuthHandler) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var req RequestLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	// Rate limiting: max 5 requests per email in 10 minutes
	count, err := h.tokenRepo.CountRecentByEmail(r.Context(), req.Email, 10*time.Minute)
	if err != nil {
		h.logger.Error("rate limit check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if count >= 5 {
		writeError(w, http.StatusTooManyRequests, "too many login requests, please try again later")
		return
	}

	tokenValue := uuid.New().String()

	authToken := &models.AuthToken{
		Email:     req.Email,
		Token:     tokenValue,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		IsUsed:    false,
	}
	if err := h.tokenRepo.Create(r.Context(), authToken); err != nil {
		h.logger.Error("creating auth token failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create login token")
		return
	}

	baseURL := h.cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	loginLink := fmt.Sprintf("%s/auth/verify?token=%s", baseURL, tokenValue)

	if err := h.sendLoginEmail(req.Email, loginLink); err != nil {
		h.logger.Error("sending login email failed", zap.Error(err))
		// Token is created; email delivery is best-effort.
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "login link generated (email delivery may be delayed)",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login link sent to your email",
	})
}

// --- GET /auth/verify ---

func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	authToken, err := h.tokenRepo.FindByToken(r.Context(), tokenValue)
	if err != nil {
		h.logger.Error("finding auth token failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if authToken == nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if authToken.IsExpired() {
		writeError(w, http.StatusUnauthorized, "token has expired")
		return
	}
	if authToken.IsUsed {
		writeError(w, http.StatusUnauthorized, "token has already been used")
		return
	}

	if err := h.tokenRepo.MarkUsed(r.Context(), tokenValue); err != nil {
		h.logger.Error("marking token used failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.userRepo.FindOrCreate(r.Context(), authToken.Email)
	if err != nil {
		h.logger.Error("finding or creating user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"exp":     time.Now().Add(30 * 24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := jwtToken.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("signing JWT failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Token: tokenString,
		User:  user,
	})
}

func (h *AuthHandler) sendLoginEmail(to, link string) error {
	if h.cfg.ResendAPIKey == "" {
		h.logger.Warn("RESEND_API_KEY not set, skipping email send",
			zap.String("to", to),
			zap.String("login_link", link))
		return nil
	}

	client := resend.NewClient(h.cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    h.cfg.FromEmail,
		To:      []string{to},
		Subject: "Your Prepmate Login Link",
		Html: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">Welcome to Prepmate</h2>
				<p>Click the button below to sign in and start practicing interviews:</p>
				<a href="%s" style="display: inline-block; background: #6366f1; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600;">
					Sign in to Prepmate
				</a>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					This link expires in 15 minutes and can only be used once.
				</p>
				<p style="color: #aaa; font-size: 12px;">
					If you didn't request this, you can safely ignore this email.
				</p>
			</div>
		`, link),
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	h.logger.Info("login email sent", zap.String("email_id", sent.Id))
	return nil
}
