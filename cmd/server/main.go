package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"prepmate-backend/internal/config"
	"prepmate-backend/internal/database"
	"prepmate-backend/internal/feedback"
	"prepmate-backend/internal/handlers"
	"prepmate-backend/internal/interview"
	"prepmate-backend/internal/jobs"
	custommiddleware "prepmate-backend/internal/middleware"
	"prepmate-backend/internal/notify"
	"prepmate-backend/internal/oracle"
	"prepmate-backend/internal/repository"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.Connect(cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.DBName))

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewAuthTokenRepo(db)
	interviewRepo := repository.NewInterviewRepo(db)
	feedbackRepo := repository.NewFeedbackRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to create user indexes", zap.Error(err))
	}
	if err := tokenRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to create token indexes", zap.Error(err))
	}
	if err := interviewRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to create interview indexes", zap.Error(err))
	}
	// The unique (interview_id, user_id) index backs the at-most-one
	// feedback invariant; refuse to serve without it.
	if err := feedbackRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("failed to create feedback indexes", zap.Error(err))
	}

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Fatal("failed to create Gemini client", zap.Error(err))
	}

	scorer := oracle.NewGeminiScorer(genaiClient, cfg.GeminiModel, cfg.OracleTimeout, logger)
	engine := feedback.NewEngine(feedbackRepo, scorer, logger)

	questionGen := interview.NewGeminiQuestionGenerator(genaiClient, cfg.GeminiModel, cfg.OracleTimeout, logger)
	interviewService := interview.NewService(interviewRepo, questionGen, engine, logger)

	leaderboard := jobs.NewLeaderboard(interviewService, cfg.LeaderboardSchedule, logger)
	if err := leaderboard.Start(); err != nil {
		logger.Fatal("failed to start leaderboard job", zap.Error(err))
	}
	defer leaderboard.Stop()

	notifier := notify.NewLogNotifier(logger)

	authHandler := handlers.NewAuthHandler(tokenRepo, userRepo, cfg, logger)
	userHandler := handlers.NewUserHandler(userRepo, logger)
	interviewHandler := handlers.NewInterviewHandler(interviewService, leaderboard, cfg.LatestLimit, logger)
	feedbackHandler := handlers.NewFeedbackHandler(engine, interviewRepo, userRepo, notifier, logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"prepmate-backend"}`))
	})

	// Public routes (no auth required)
	r.Post("/auth/request", authHandler.RequestLogin)
	r.Get("/auth/verify", authHandler.VerifyToken)

	// Protected routes (JWT required)
	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.JWTAuth(cfg.JWTSecret))

		r.Get("/user/status", userHandler.GetStatus)
		r.Patch("/user/onboarding", userHandler.CompleteOnboarding)

		r.Post("/interviews/generate", interviewHandler.Generate)
		r.Get("/interviews/mine", interviewHandler.ListMine)
		r.Get("/interviews/latest", interviewHandler.Latest)
		r.Get("/interviews/taken", feedbackHandler.TakenInterviews)
		r.Get("/interviews/{id}", interviewHandler.Get)
		r.Patch("/interviews/{id}", interviewHandler.Update)

		r.Post("/interviews/{id}/feedback", feedbackHandler.Reconcile)
		r.Get("/interviews/{id}/feedback", feedbackHandler.Get)
		r.Get("/interviews/{id}/analytics", feedbackHandler.Analytics)
		r.Post("/interviews/{id}/rating", feedbackHandler.RateByInterview)
		r.Get("/interviews/{id}/rating", feedbackHandler.AverageRating)
		r.Post("/feedback/{id}/rating", feedbackHandler.RateByFeedbackID)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
