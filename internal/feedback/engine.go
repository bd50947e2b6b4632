package feedback

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"prepmate-backend/internal/models"
	"prepmate-backend/internal/oracle"
)

// Outcome of a reconciliation.
type Outcome string

const (
	// OutcomeCreated: first feedback for the pair was created.
	OutcomeCreated Outcome = "created"
	// OutcomeRetained: the existing record scored higher and was kept;
	// the new score was discarded.
	OutcomeRetained Outcome = "retained"
	// OutcomeUpdated: the new score matched or beat the stored one and
	// replaced the record's scoring fields.
	OutcomeUpdated Outcome = "updated"
)

// Result reports what the engine did with a freshly scored attempt. For
// OutcomeRetained, DiscardedScore carries the new score that was computed
// but not stored, so the caller can tell the user their latest attempt
// scored lower.
type Result struct {
	Outcome        Outcome       `json:"outcome"`
	FeedbackID     bson.ObjectID `json:"feedback_id"`
	DiscardedScore int           `json:"discarded_score,omitempty"`
}

// Engine owns the fate of every scoring result: it scores the transcript
// through the oracle, then applies best-score-wins against the single
// feedback record a (interview, user) pair may have. Repeated attempts
// never regress the recorded score; commentary is replaced whenever an
// equal-or-better score is achieved.
type Engine struct {
	store  Store
	scorer oracle.Scorer
	logger *zap.Logger
}

func NewEngine(store Store, scorer oracle.Scorer, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		scorer: scorer,
		logger: logger,
	}
}

// Reconcile scores the transcript and merges the result into storage.
// Oracle failures (malformed output, unavailability, timeout) surface as
// *oracle.Error with nothing persisted; storage failures abort with no
// partial writes.
func (e *Engine) Reconcile(ctx context.Context, interviewID, userID bson.ObjectID, transcript []models.TranscriptEntry) (*Result, error) {
	score, err := e.scorer.Score(ctx, transcript)
	if err != nil {
		return nil, err
	}

	candidate := &models.Feedback{
		InterviewID:         interviewID,
		UserID:              userID,
		TotalScore:          score.TotalScore,
		CategoryScores:      score.CategoryScores,
		Strengths:           score.Strengths,
		AreasForImprovement: score.AreasForImprovement,
		FinalAssessment:     score.FinalAssessment,
	}

	id, created, err := e.store.UpsertBestScore(ctx, candidate)
	if errors.Is(err, ErrScoreNotImproved) {
		existing, lerr := e.store.FindByPair(ctx, interviewID, userID)
		if lerr != nil {
			return nil, fmt.Errorf("looking up retained feedback: %w", lerr)
		}
		if existing == nil {
			return nil, fmt.Errorf("feedback for interview %s user %s vanished during reconcile", interviewID.Hex(), userID.Hex())
		}
		e.logger.Info("new attempt scored lower, keeping previous feedback",
			zap.String("feedback_id", existing.ID.Hex()),
			zap.Int("stored_score", existing.TotalScore),
			zap.Int("discarded_score", score.TotalScore))
		return &Result{
			Outcome:        OutcomeRetained,
			FeedbackID:     existing.ID,
			DiscardedScore: score.TotalScore,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persisting feedback: %w", err)
	}

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	e.logger.Info("feedback reconciled",
		zap.String("feedback_id", id.Hex()),
		zap.String("outcome", string(outcome)),
		zap.Int("total_score", score.TotalScore))

	return &Result{Outcome: outcome, FeedbackID: id}, nil
}

// Get returns the caller's feedback for an interview, or
// ErrFeedbackNotFound when none exists.
func (e *Engine) Get(ctx context.Context, interviewID, userID bson.ObjectID) (*models.Feedback, error) {
	fb, err := e.store.FindByPair(ctx, interviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up feedback: %w", err)
	}
	if fb == nil {
		return nil, ErrFeedbackNotFound
	}
	return fb, nil
}

// ListByInterview returns every feedback record for an interview,
// highest total score first.
func (e *Engine) ListByInterview(ctx context.Context, interviewID bson.ObjectID) ([]models.Feedback, error) {
	feedbacks, err := e.store.ListByInterview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	sort.SliceStable(feedbacks, func(i, j int) bool {
		return feedbacks[i].TotalScore > feedbacks[j].TotalScore
	})
	return feedbacks, nil
}

// ListByUser returns the feedback records a user has earned across
// interviews, newest first.
func (e *Engine) ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Feedback, error) {
	feedbacks, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return feedbacks, nil
}
