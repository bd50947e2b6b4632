package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"prepmate-backend/internal/feedback"
	"prepmate-backend/internal/models"
)

var (
	ErrNotFound = errors.New("interview not found")
	ErrNotOwner = errors.New("only the interview owner can edit it")
	// ErrRoleImmutable: the role is fixed at creation; edits may only
	// touch questions and visibility.
	ErrRoleImmutable = errors.New("interview role cannot be changed")
	ErrNoQuestions   = errors.New("an interview needs at least one question")
)

// Repo is the interview storage capability the service runs on.
type Repo interface {
	Create(ctx context.Context, interview *models.Interview) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Interview, error)
	FindByUser(ctx context.Context, userID bson.ObjectID) ([]models.Interview, error)
	FindFinalized(ctx context.Context) ([]models.Interview, error)
	UpdateContent(ctx context.Context, id bson.ObjectID, questions []string, visibility *bool) error
}

// RatingSource supplies the derived rating aggregate per interview; the
// feedback engine satisfies it.
type RatingSource interface {
	AverageRating(ctx context.Context, interviewID bson.ObjectID) (feedback.RatingSummary, error)
}

// Ranked pairs an interview with its current average rating for the
// public listing.
type Ranked struct {
	models.Interview
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

type Service struct {
	repo      Repo
	questions QuestionGenerator
	ratings   RatingSource
	logger    *zap.Logger
}

func NewService(repo Repo, questions QuestionGenerator, ratings RatingSource, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		questions: questions,
		ratings:   ratings,
		logger:    logger,
	}
}

// GenerateParams describes a new interview to generate.
type GenerateParams struct {
	UserID     bson.ObjectID
	Role       string
	Level      string
	Type       string
	Techstack  []string
	Amount     int
	Visibility *bool
}

// Generate creates a finalized interview with an AI-generated question
// list. A newly generated interview defaults to private unless the
// caller asked for it to be public.
func (s *Service) Generate(ctx context.Context, p GenerateParams) (*models.Interview, error) {
	questions, err := s.questions.GenerateQuestions(ctx, p.Role, p.Level, p.Type, p.Techstack, p.Amount)
	if err != nil {
		return nil, err
	}

	visibility := false
	if p.Visibility != nil {
		visibility = *p.Visibility
	}

	interview := &models.Interview{
		UserID:     p.UserID,
		Role:       p.Role,
		Level:      p.Level,
		Type:       p.Type,
		Questions:  questions,
		Techstack:  p.Techstack,
		Visibility: &visibility,
		Finalized:  true,
		CoverImage: RandomCover(),
	}
	if err := s.repo.Create(ctx, interview); err != nil {
		return nil, fmt.Errorf("persisting interview: %w", err)
	}

	s.logger.Info("interview generated",
		zap.String("interview_id", interview.ID.Hex()),
		zap.String("role", p.Role),
		zap.Int("questions", len(questions)))
	return interview, nil
}

// GetByID returns an interview, hiding private interviews from everyone
// but their owner.
func (s *Service) GetByID(ctx context.Context, id, requesterID bson.ObjectID) (*models.Interview, error) {
	interview, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up interview: %w", err)
	}
	if interview == nil {
		return nil, ErrNotFound
	}
	if !interview.IsPublic() && interview.UserID != requesterID {
		return nil, ErrNotFound
	}
	return interview, nil
}

// ListMine returns the caller's interviews, newest first.
func (s *Service) ListMine(ctx context.Context, userID bson.ObjectID) ([]models.Interview, error) {
	return s.repo.FindByUser(ctx, userID)
}

// UpdateParams carries an interview edit. Role is present only so an
// attempted change can be rejected explicitly.
type UpdateParams struct {
	Role       string
	Questions  []string
	Visibility *bool
}

// Update edits an interview's questions and visibility. Owner only; the
// role is immutable after creation.
func (s *Service) Update(ctx context.Context, id, userID bson.ObjectID, p UpdateParams) error {
	if len(p.Questions) == 0 {
		return ErrNoQuestions
	}

	interview, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up interview: %w", err)
	}
	if interview == nil {
		return ErrNotFound
	}
	if interview.UserID != userID {
		return ErrNotOwner
	}
	if p.Role != "" && p.Role != interview.Role {
		return ErrRoleImmutable
	}

	if err := s.repo.UpdateContent(ctx, id, p.Questions, p.Visibility); err != nil {
		return fmt.Errorf("updating interview: %w", err)
	}
	return nil
}

// Latest ranks the finalized public interviews by average rating,
// excluding the given user's own. A zero excludeUser excludes nothing; a
// limit of zero means no limit.
func (s *Service) Latest(ctx context.Context, excludeUser bson.ObjectID, limit int) ([]Ranked, error) {
	interviews, err := s.repo.FindFinalized(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interviews: %w", err)
	}

	ranked := make([]Ranked, 0, len(interviews))
	for _, iv := range interviews {
		if !iv.IsPublic() {
			continue
		}
		if !excludeUser.IsZero() && iv.UserID == excludeUser {
			continue
		}
		summary, err := s.ratings.AverageRating(ctx, iv.ID)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{
			Interview:     iv,
			AverageRating: summary.Average,
			RatingCount:   summary.Count,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AverageRating > ranked[j].AverageRating
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
