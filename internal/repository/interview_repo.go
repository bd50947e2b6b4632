package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"prepmate-backend/internal/models"
)

type InterviewRepo struct {
	collection *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) *InterviewRepo {
	return &InterviewRepo{
		collection: db.Collection("interviews"),
	}
}

func (r *InterviewRepo) Create(ctx context.Context, interview *models.Interview) error {
	interview.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, interview)
	if err != nil {
		return err
	}
	interview.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

func (r *InterviewRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Interview, error) {
	var interview models.Interview
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&interview)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &interview, nil
}

// FindByUser returns a user's own interviews, newest first.
func (r *InterviewRepo) FindByUser(ctx context.Context, userID bson.ObjectID) ([]models.Interview, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var interviews []models.Interview
	if err := cursor.All(ctx, &interviews); err != nil {
		return nil, err
	}
	return interviews, nil
}

// FindFinalized returns every finalized interview. Visibility filtering
// happens in the service layer, where the read-boundary default applies.
func (r *InterviewRepo) FindFinalized(ctx context.Context) ([]models.Interview, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"finalized": true})
	if err != nil {
		return nil, err
	}
	var interviews []models.Interview
	if err := cursor.All(ctx, &interviews); err != nil {
		return nil, err
	}
	return interviews, nil
}

// UpdateContent replaces the editable fields of an interview. Role is
// immutable after creation and is deliberately absent here.
func (r *InterviewRepo) UpdateContent(ctx context.Context, id bson.ObjectID, questions []string, visibility *bool) error {
	set := bson.M{"questions": questions}
	if visibility != nil {
		set["visibility"] = *visibility
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// EnsureIndexes creates necessary indexes for the interviews collection.
func (r *InterviewRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "finalized", Value: 1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
