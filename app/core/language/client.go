// Package language adapts the external text-generation service to the narrow
// surface the planner consumes. Model output is never trusted: every response
// goes through a defensive decoder before it reaches session state.
package language

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	config "taskpilot/app/configs"
	"taskpilot/app/core/planner"
	"taskpilot/app/pkg/logger"
)

// GenerationError wraps any failure of a language call: transport, timeout,
// or an unusable response. Always retryable, never fatal to the process.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Client struct {
	api     openai.Client
	timeout time.Duration

	mu    sync.RWMutex
	model string
}

func NewClient(cfg config.LanguageConfig) (*Client, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("language api key not set (env %s)", cfg.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:     openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
	}, nil
}

// SetModel swaps the model in use; applied by config hot-reload.
func (c *Client) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

func (c *Client) currentModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *Client) complete(ctx context.Context, op string, system string, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.currentModel()),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", &GenerationError{Op: op, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Op: op, Err: fmt.Errorf("response has no choices")}
	}
	out := resp.Choices[0].Message.Content
	logger.Debug("language %s: %d prompt chars, %d output chars, %dms", op, len(user), len(out), time.Since(started).Milliseconds())
	return out, nil
}

func (c *Client) AnalyzeTask(ctx context.Context, raw string) (planner.TaskUnderstanding, error) {
	out, err := c.complete(ctx, "analyze_task", analyzeSystem, buildAnalyzePrompt(raw))
	if err != nil {
		return planner.TaskUnderstanding{}, err
	}
	u, err := decodeUnderstanding(out)
	if err != nil {
		return planner.TaskUnderstanding{}, &GenerationError{Op: "analyze_task", Err: err}
	}
	return u, nil
}

func (c *Client) AssessComplexity(ctx context.Context, raw string) (planner.Complexity, error) {
	out, err := c.complete(ctx, "assess_complexity", complexitySystem, buildComplexityPrompt(raw))
	if err != nil {
		return planner.ComplexityUnknown, err
	}
	complexity, err := decodeComplexity(out)
	if err != nil {
		return planner.ComplexityUnknown, &GenerationError{Op: "assess_complexity", Err: err}
	}
	return complexity, nil
}

func (c *Client) GenerateClarifyingQuestions(ctx context.Context, u planner.TaskUnderstanding) ([]planner.ClarifyingQuestion, error) {
	out, err := c.complete(ctx, "clarifying_questions", questionsSystem, buildQuestionsPrompt(u, promptQuestionCeiling))
	if err != nil {
		return nil, err
	}
	questions, err := decodeQuestions(out)
	if err != nil {
		return nil, &GenerationError{Op: "clarifying_questions", Err: err}
	}
	return questions, nil
}

func (c *Client) GenerateTaskPlan(ctx context.Context, u planner.TaskUnderstanding, answers planner.AnswerMap, extraInstruction string) (planner.TaskPlan, error) {
	out, err := c.complete(ctx, "generate_plan", planSystem, buildPlanPrompt(u, answers, extraInstruction))
	if err != nil {
		return planner.TaskPlan{}, err
	}
	plan, err := decodePlan(out)
	if err != nil {
		return planner.TaskPlan{}, &GenerationError{Op: "generate_plan", Err: err}
	}
	return plan, nil
}

func (c *Client) Refine(ctx context.Context, p planner.TaskPlan, transcript []planner.RefinementMessage, message string) (string, error) {
	out, err := c.complete(ctx, "refine", refineSystem, buildRefinePrompt(p, transcript, message))
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(out)
	if reply == "" {
		return "", &GenerationError{Op: "refine", Err: fmt.Errorf("empty reply")}
	}
	return reply, nil
}

// promptQuestionCeiling is what the model is told; the orchestrator enforces
// its own configured bound on whatever comes back.
const promptQuestionCeiling = 2

var _ planner.LanguageService = (*Client)(nil)
