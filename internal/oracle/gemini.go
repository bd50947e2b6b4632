package oracle

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"prepmate-backend/internal/models"
)

const scoringSystemInstruction = "You are a professional interviewer analyzing a mock interview. " +
	"Your task is to evaluate the candidate based on structured categories."

const scoringPrompt = `You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories. Be thorough and detailed in your analysis. Don't be lenient with the candidate. If there are mistakes or areas for improvement, point them out.
Transcript:
%TRANSCRIPT%

Please score the candidate from 0 to 100 in the following areas. Do not add categories other than the ones provided:
- **Communication Skills**: Clarity, articulation, structured responses.
- **Technical Knowledge**: Understanding of key concepts for the role.
- **Problem Solving**: Ability to analyze problems and propose solutions.
- **Cultural Fit**: Alignment with company values and job role.
- **Confidence and Clarity**: Confidence in responses, engagement, and clarity.

Respond with a single JSON object of the shape:
{"totalScore": number, "categoryScores": [{"name": string, "score": number, "comment": string}, ...], "strengths": [string], "areasForImprovement": [string], "finalAssessment": string}
The categoryScores array must contain exactly the five categories above, in that order.`

// GeminiScorer scores transcripts with the Gemini API. Every call is
// bounded by the configured timeout so a stuck oracle surfaces as a
// distinct timeout error instead of hanging the session.
type GeminiScorer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGeminiScorer(client *genai.Client, model string, timeout time.Duration, logger *zap.Logger) *GeminiScorer {
	return &GeminiScorer{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *GeminiScorer) Score(ctx context.Context, transcript []models.TranscriptEntry) (*ScoreResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := strings.Replace(scoringPrompt, "%TRANSCRIPT%", FormatTranscript(transcript), 1)

	start := time.Now()
	result, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: scoringSystemInstruction}},
			},
		},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Code: ErrCodeTimeout, Message: "scoring call exceeded " + s.timeout.String(), Err: err}
		}
		return nil, &Error{Code: ErrCodeUnavailable, Message: "scoring call failed", Err: err}
	}
	if result == nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: "no response generated"}
	}

	text, err := result.Text()
	if err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: "failed to extract response text", Err: err}
	}
	if text == "" {
		return nil, &Error{Code: ErrCodeMalformed, Message: "empty response generated"}
	}

	score, perr := ParseScoreResult([]byte(stripFences(text)))
	if perr != nil {
		s.logger.Warn("oracle returned a malformed score result",
			zap.String("model", s.model),
			zap.Error(perr))
		return nil, perr
	}

	s.logger.Debug("transcript scored",
		zap.String("model", s.model),
		zap.Int("total_score", score.TotalScore),
		zap.Duration("elapsed", time.Since(start)))

	return score, nil
}

// FormatTranscript renders the transcript one utterance per line, the
// form the scoring prompt expects.
func FormatTranscript(transcript []models.TranscriptEntry) string {
	var b strings.Builder
	for _, entry := range transcript {
		b.WriteString("- ")
		b.WriteString(entry.Role)
		b.WriteString(": ")
		b.WriteString(entry.Content)
		b.WriteString("\n")
	}
	return b.String()
}
