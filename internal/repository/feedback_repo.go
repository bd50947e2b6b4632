package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"prepmate-backend/internal/feedback"
	"prepmate-backend/internal/models"
)

// FeedbackRepo implements feedback.Store on the feedbacks collection.
type FeedbackRepo struct {
	collection *mongo.Collection
}

func NewFeedbackRepo(db *mongo.Database) *FeedbackRepo {
	return &FeedbackRepo{
		collection: db.Collection("feedbacks"),
	}
}

func (r *FeedbackRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Feedback, error) {
	var fb models.Feedback
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&fb)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &fb, nil
}

func (r *FeedbackRepo) FindByPair(ctx context.Context, interviewID, userID bson.ObjectID) (*models.Feedback, error) {
	var fb models.Feedback
	err := r.collection.FindOne(ctx, bson.M{
		"interview_id": interviewID,
		"user_id":      userID,
	}).Decode(&fb)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &fb, nil
}

// UpsertBestScore applies best-score-wins in a single conditional upsert.
// The filter only matches a record whose stored score is <= the
// candidate's, so an equal-or-better attempt updates in place; when a
// higher-scoring record exists the filter matches nothing, the attempted
// insert trips the unique (interview_id, user_id) index and the write is
// reported as ErrScoreNotImproved. With the unique index in place there
// is no window for two concurrent attempts to both create a record.
func (r *FeedbackRepo) UpsertBestScore(ctx context.Context, candidate *models.Feedback) (bson.ObjectID, bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"interview_id": candidate.InterviewID,
		"user_id":      candidate.UserID,
		"total_score":  bson.M{"$lte": candidate.TotalScore},
	}
	update := bson.M{
		"$set": bson.M{
			"total_score":           candidate.TotalScore,
			"category_scores":       candidate.CategoryScores,
			"strengths":             candidate.Strengths,
			"areas_for_improvement": candidate.AreasForImprovement,
			"final_assessment":      candidate.FinalAssessment,
			"updated_at":            now,
		},
		"$setOnInsert": bson.M{
			"interview_id": candidate.InterviewID,
			"user_id":      candidate.UserID,
			"created_at":   now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bson.NilObjectID, false, feedback.ErrScoreNotImproved
		}
		return bson.NilObjectID, false, err
	}

	if result.UpsertedID != nil {
		id, ok := result.UpsertedID.(bson.ObjectID)
		if !ok {
			return bson.NilObjectID, false, fmt.Errorf("unexpected upserted id type %T", result.UpsertedID)
		}
		return id, true, nil
	}

	// Matched an existing record; fetch its id.
	existing, err := r.FindByPair(ctx, candidate.InterviewID, candidate.UserID)
	if err != nil {
		return bson.NilObjectID, false, err
	}
	if existing == nil {
		return bson.NilObjectID, false, fmt.Errorf("updated feedback for interview %s not found", candidate.InterviewID.Hex())
	}
	return existing.ID, false, nil
}

func (r *FeedbackRepo) SetRating(ctx context.Context, id bson.ObjectID, rating int) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"user_rating": rating},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return feedback.ErrFeedbackNotFound
	}
	return nil
}

func (r *FeedbackRepo) ListByInterview(ctx context.Context, interviewID bson.ObjectID) ([]models.Feedback, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"interview_id": interviewID})
	if err != nil {
		return nil, err
	}
	var feedbacks []models.Feedback
	if err := cursor.All(ctx, &feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func (r *FeedbackRepo) ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Feedback, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var feedbacks []models.Feedback
	if err := cursor.All(ctx, &feedbacks); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

// EnsureIndexes creates necessary indexes for the feedbacks collection.
// The unique compound index is what makes UpsertBestScore race-free.
func (r *FeedbackRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "interview_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "interview_id", Value: 1}, {Key: "user_rating", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
