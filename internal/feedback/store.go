package feedback

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"prepmate-backend/internal/models"
)

var (
	// ErrScoreNotImproved is returned by Store.UpsertBestScore when an
	// existing record with a strictly higher total score blocked the
	// write. The engine maps it to a Retained outcome.
	ErrScoreNotImproved = errors.New("existing feedback has a higher score")

	// ErrFeedbackNotFound is returned when a rating target does not
	// resolve to a feedback record.
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrInvalidRating is returned for ratings outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Store is the persistence capability the engine runs on. The Mongo
// implementation lives in internal/repository; tests substitute an
// in-memory fake.
//
// Find methods return (nil, nil) when no document matches.
type Store interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Feedback, error)
	FindByPair(ctx context.Context, interviewID, userID bson.ObjectID) (*models.Feedback, error)

	// UpsertBestScore atomically applies best-score-wins for the
	// candidate's (interview, user) pair: it creates the record when none
	// exists, overwrites the scoring fields when the candidate's total
	// score is greater than or equal to the stored one (preserving id,
	// created_at and any user rating), and fails with
	// ErrScoreNotImproved when the stored score is strictly higher. The
	// read and the write must not be separable by a concurrent caller.
	UpsertBestScore(ctx context.Context, candidate *models.Feedback) (id bson.ObjectID, created bool, err error)

	// SetRating overwrites the user rating on an existing record.
	// Returns ErrFeedbackNotFound when the id does not resolve.
	SetRating(ctx context.Context, id bson.ObjectID, rating int) error

	ListByInterview(ctx context.Context, interviewID bson.ObjectID) ([]models.Feedback, error)

	// ListByUser returns every feedback record a user has earned across
	// interviews, newest first.
	ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Feedback, error)
}
