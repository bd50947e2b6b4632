package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"prepmate-backend/internal/models"
)

// rawScore mirrors the JSON shape the oracle is instructed to produce.
// Pointers distinguish absent fields from zero values.
type rawScore struct {
	TotalScore     *float64 `json:"totalScore"`
	CategoryScores []struct {
		Name    *string  `json:"name"`
		Score   *float64 `json:"score"`
		Comment *string  `json:"comment"`
	} `json:"categoryScores"`
	Strengths           *[]string `json:"strengths"`
	AreasForImprovement *[]string `json:"areasForImprovement"`
	FinalAssessment     *string   `json:"finalAssessment"`
}

// ParseScoreResult validates an oracle response against the fixed score
// schema: one total score, exactly the five known categories in order,
// strengths, improvement areas and a final assessment. Anything else is
// rejected so partial data never reaches storage.
func ParseScoreResult(data []byte) (*ScoreResult, error) {
	var raw rawScore
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: "response is not valid JSON", Err: err}
	}

	if raw.TotalScore == nil {
		return nil, malformed("missing totalScore")
	}
	total, ok := toScore(*raw.TotalScore)
	if !ok {
		return nil, malformed(fmt.Sprintf("totalScore %v out of range", *raw.TotalScore))
	}

	if len(raw.CategoryScores) != len(models.CategoryNames) {
		return nil, malformed(fmt.Sprintf("expected %d category scores, got %d", len(models.CategoryNames), len(raw.CategoryScores)))
	}

	categories := make([]models.CategoryScore, 0, len(models.CategoryNames))
	for i, c := range raw.CategoryScores {
		if c.Name == nil || c.Score == nil || c.Comment == nil {
			return nil, malformed(fmt.Sprintf("category %d is missing a field", i))
		}
		if *c.Name != models.CategoryNames[i] {
			return nil, malformed(fmt.Sprintf("category %d: expected %q, got %q", i, models.CategoryNames[i], *c.Name))
		}
		score, ok := toScore(*c.Score)
		if !ok {
			return nil, malformed(fmt.Sprintf("category %q score %v out of range", *c.Name, *c.Score))
		}
		categories = append(categories, models.CategoryScore{
			Name:    *c.Name,
			Score:   score,
			Comment: *c.Comment,
		})
	}

	if raw.Strengths == nil {
		return nil, malformed("missing strengths")
	}
	if raw.AreasForImprovement == nil {
		return nil, malformed("missing areasForImprovement")
	}
	if raw.FinalAssessment == nil {
		return nil, malformed("missing finalAssessment")
	}

	return &ScoreResult{
		TotalScore:          total,
		CategoryScores:      categories,
		Strengths:           *raw.Strengths,
		AreasForImprovement: *raw.AreasForImprovement,
		FinalAssessment:     *raw.FinalAssessment,
	}, nil
}

func malformed(msg string) *Error {
	return &Error{Code: ErrCodeMalformed, Message: msg}
}

func toScore(v float64) (int, bool) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, false
	}
	return int(math.Round(v)), true
}

// stripFences removes a markdown code fence the model occasionally wraps
// around its JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
