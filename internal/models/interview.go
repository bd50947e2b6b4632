package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Interview types.
const (
	InterviewTypeBehavioural = "behavioural"
	InterviewTypeTechnical   = "technical"
	InterviewTypeMixed       = "mixed"
)

type Interview struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     bson.ObjectID `bson:"user_id" json:"user_id"`
	Role       string        `bson:"role" json:"role"`
	Level      string        `bson:"level" json:"level"`
	Type       string        `bson:"type" json:"type"`
	Questions  []string      `bson:"questions" json:"questions"`
	Techstack  []string      `bson:"techstack" json:"techstack"`
	Visibility *bool         `bson:"visibility,omitempty" json:"visibility"`
	Finalized  bool          `bson:"finalized" json:"finalized"`
	CoverImage string        `bson:"cover_image" json:"cover_image"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}

// IsPublic resolves the visibility flag. Documents written before the flag
// existed have no visibility field; those default to public. This is the
// single place the default is applied; callers must not inspect the
// pointer themselves.
func (i *Interview) IsPublic() bool {
	if i.Visibility == nil {
		return true
	}
	return *i.Visibility
}
