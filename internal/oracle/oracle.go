package oracle

import (
	"context"
	"errors"

	"prepmate-backend/internal/models"
)

// ScoreResult is the validated output of the scoring oracle. The total
// score and the category scores are independent: the total is stored as
// the oracle reports it and is never recomputed from the categories.
type ScoreResult struct {
	TotalScore          int
	CategoryScores      []models.CategoryScore
	Strengths           []string
	AreasForImprovement []string
	FinalAssessment     string
}

// Scorer evaluates an interview transcript. Implementations are stateless
// and never touch storage.
type Scorer interface {
	Score(ctx context.Context, transcript []models.TranscriptEntry) (*ScoreResult, error)
}

// Error codes.
const (
	ErrCodeMalformed   = "malformed_score_result"
	ErrCodeUnavailable = "service_unavailable"
	ErrCodeTimeout     = "timeout"
	ErrCodeAPIKey      = "invalid_api_key"
)

// Error is a scoring-oracle failure with a machine-readable code.
// Malformed results are terminal; unavailability and timeouts may be
// retried by the caller (the oracle itself never retries).
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "oracle error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return "oracle error: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is a schema-validation failure of the
// oracle output.
func IsMalformed(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Code == ErrCodeMalformed
}

// IsRetryable reports whether err is a transient oracle failure the
// caller may retry with backoff.
func IsRetryable(err error) bool {
	var oe *Error
	if !errors.As(err, &oe) {
		return false
	}
	return oe.Code == ErrCodeUnavailable || oe.Code == ErrCodeTimeout
}
