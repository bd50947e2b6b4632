package feedback

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// RatingRef identifies the feedback record a rating attaches to: either
// directly by feedback id, or indirectly by (interview, user) when the
// id is zero. UserID is always the rater; a by-id reference to someone
// else's record does not resolve.
type RatingRef struct {
	FeedbackID  bson.ObjectID
	InterviewID bson.ObjectID
	UserID      bson.ObjectID
}

// RatingSummary is the derived rating aggregate for one interview. It is
// recomputed on read and never stored; Count is the number of feedback
// records carrying a rating.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// AttachRating sets the user rating on the referenced feedback record.
// Submitting again overwrites the previous value. Ratings outside [1,5]
// are rejected with ErrInvalidRating; an unresolvable reference with
// ErrFeedbackNotFound.
func (e *Engine) AttachRating(ctx context.Context, ref RatingRef, rating int) (bson.ObjectID, error) {
	if rating < 1 || rating > 5 {
		return bson.NilObjectID, ErrInvalidRating
	}

	id := ref.FeedbackID
	if id.IsZero() {
		fb, err := e.store.FindByPair(ctx, ref.InterviewID, ref.UserID)
		if err != nil {
			return bson.NilObjectID, fmt.Errorf("resolving rating target: %w", err)
		}
		if fb == nil {
			return bson.NilObjectID, ErrFeedbackNotFound
		}
		id = fb.ID
	} else {
		fb, err := e.store.FindByID(ctx, id)
		if err != nil {
			return bson.NilObjectID, fmt.Errorf("resolving rating target: %w", err)
		}
		// Only the record's own taker may rate it; a foreign id is
		// indistinguishable from a missing one.
		if fb == nil || fb.UserID != ref.UserID {
			return bson.NilObjectID, ErrFeedbackNotFound
		}
	}

	if err := e.store.SetRating(ctx, id, rating); err != nil {
		return bson.NilObjectID, err
	}

	e.logger.Info("rating attached",
		zap.String("feedback_id", id.Hex()),
		zap.Int("rating", rating))
	return id, nil
}

// AverageRating computes the unweighted mean of the ratings attached to
// an interview's feedback records. Read-only: zero feedback or zero
// ratings yields {Average: 0, Count: 0}.
func (e *Engine) AverageRating(ctx context.Context, interviewID bson.ObjectID) (RatingSummary, error) {
	feedbacks, err := e.store.ListByInterview(ctx, interviewID)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("listing feedback: %w", err)
	}

	total, count := 0, 0
	for _, fb := range feedbacks {
		if fb.UserRating != nil {
			total += *fb.UserRating
			count++
		}
	}
	if count == 0 {
		return RatingSummary{}, nil
	}
	return RatingSummary{
		Average: float64(total) / float64(count),
		Count:   count,
	}, nil
}
