package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	scoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hireloop",
		Subsystem: "oracle",
		Name:      "score_duration_seconds",
		Help:      "Duration of scoring oracle requests",
	}, []string{"model"})

	scoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hireloop",
		Subsystem: "oracle",
		Name:      "score_failures_total",
		Help:      "Number of scoring oracle failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI scorer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIScorer implements Scorer against the OpenAI chat completion API.
type OpenAIScorer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIScorer builds a scorer using the provided configuration.
func NewOpenAIScorer(cfg OpenAIConfig) (*OpenAIScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}

	tracer := otel.Tracer("github.com/hireloop/interview-api/pkg/oracle")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIScorer{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Score sends the answer pair to OpenAI and parses the structured response.
func (s *OpenAIScorer) Score(parent context.Context, req ScoreRequest) (ScoreResult, error) {
	ctx, span := s.tracer.Start(parent, "oracle.score", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
		attribute.Int64("question_id", int64(req.QuestionID)),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: scorerSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildScorePrompt(req),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	scoreDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		scoreFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoreResult{}, fmt.Errorf("oracle score: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		scoreFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoreResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseScoreResponse(content, req.MaxScore)
	if err != nil {
		scoreFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoreResult{}, err
	}

	span.SetAttributes(attribute.Float64("oracle.similarity", result.Similarity))

	return result, nil
}

func scorerSystemPrompt() string {
	return "You compare a candidate answer against a reference answer. Respond with a JSON object containing similarity " +
		"(0-1, semantic closeness to the reference) and suggested_score (0 to the given max score, proportional to similarity and completeness)."
}

func buildScorePrompt(req ScoreRequest) string {
	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(req.Question)
	builder.WriteString("\n\n## Reference Answer\n")
	builder.WriteString(req.ReferenceAnswer)
	builder.WriteString("\n\n## Candidate Answer\n")
	builder.WriteString(req.CandidateAnswer)
	builder.WriteString(fmt.Sprintf("\n\n## Max Score\n%.1f", req.MaxScore))
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseScoreResponse(content string, maxScore float64) (ScoreResult, error) {
	var data ScoreResult
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return ScoreResult{}, fmt.Errorf("parse score json: %w", err)
	}

	if data.Similarity < 0 {
		data.Similarity = 0
	}
	if data.Similarity > 1 {
		data.Similarity = 1
	}
	if data.SuggestedScore < 0 {
		data.SuggestedScore = 0
	}
	if maxScore > 0 && data.SuggestedScore > maxScore {
		data.SuggestedScore = maxScore
	}

	return data, nil
}
