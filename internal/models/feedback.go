package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// The five scoring categories, in the order the scoring oracle must
// return them.
var CategoryNames = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence and Clarity",
}

type CategoryScore struct {
	Name    string `bson:"name" json:"name"`
	Score   int    `bson:"score" json:"score"`
	Comment string `bson:"comment" json:"comment"`
}

// Feedback is the persisted scoring result for one (interview, user)
// pair. At most one document exists per pair; a unique compound index on
// (interview_id, user_id) enforces this.
type Feedback struct {
	ID                  bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	InterviewID         bson.ObjectID   `bson:"interview_id" json:"interview_id"`
	UserID              bson.ObjectID   `bson:"user_id" json:"user_id"`
	TotalScore          int             `bson:"total_score" json:"total_score"`
	CategoryScores      []CategoryScore `bson:"category_scores" json:"category_scores"`
	Strengths           []string        `bson:"strengths" json:"strengths"`
	AreasForImprovement []string        `bson:"areas_for_improvement" json:"areas_for_improvement"`
	FinalAssessment     string          `bson:"final_assessment" json:"final_assessment"`
	UserRating          *int            `bson:"user_rating,omitempty" json:"user_rating,omitempty"`
	CreatedAt           time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `bson:"updated_at" json:"updated_at"`
}
