package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const questionPrompt = `Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this:
["Question 1", "Question 2", "Question 3"]`

// QuestionGenerator produces the ordered question list for a new
// interview.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, role, level, focus string, techstack []string, amount int) ([]string, error)
}

// GeminiQuestionGenerator generates questions with the Gemini API.
type GeminiQuestionGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGeminiQuestionGenerator(client *genai.Client, model string, timeout time.Duration, logger *zap.Logger) *GeminiQuestionGenerator {
	return &GeminiQuestionGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (g *GeminiQuestionGenerator) GenerateQuestions(ctx context.Context, role, level, focus string, techstack []string, amount int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(questionPrompt, role, level, strings.Join(techstack, ", "), focus, amount)

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("generating questions: no response")
	}

	text, err := result.Text()
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}

	questions, err := ParseQuestionList(text)
	if err != nil {
		g.logger.Warn("question generation returned unparseable output",
			zap.String("model", g.model),
			zap.Error(err))
		return nil, err
	}
	return questions, nil
}

// ParseQuestionList decodes the model's JSON array of question strings,
// tolerating a surrounding markdown fence.
func ParseQuestionList(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var questions []string
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("parsing question list: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("parsing question list: empty list")
	}
	return questions, nil
}
