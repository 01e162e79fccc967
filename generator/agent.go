package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"seo_content_generator/metrics"
)

// Agent turns one Request into one Result with a single model call.
type Agent struct {
	newClient ClientFactory
	source    KeySource
	envKey    string
	model     string
	logger    *slog.Logger
}

type AgentOptions struct {
	Source KeySource
	// EnvKey is used for every call when Source is KeySourceEnv.
	EnvKey string
	// Model is only used for metrics and the Result.
	Model  string
	Logger *slog.Logger
}

func NewAgent(factory ClientFactory, opts AgentOptions) (*Agent, error) {
	if factory == nil {
		return nil, errors.New("llm client factory is required")
	}
	src := opts.Source
	if src == "" {
		src = KeySourceForm
	}
	if src != KeySourceForm && src != KeySourceEnv {
		return nil, errors.New("unknown key source " + string(src))
	}
	if src == KeySourceEnv && strings.TrimSpace(opts.EnvKey) == "" {
		return nil, ErrMissingCredential
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		newClient: factory,
		source:    src,
		envKey:    strings.TrimSpace(opts.EnvKey),
		model:     opts.Model,
		logger:    logger,
	}, nil
}

func (a *Agent) Source() KeySource { return a.source }

// Generate validates req, builds the prompt and invokes the model once.
// apiKey is ignored when the agent uses the environment key. Invalid input
// never reaches the client factory. Failures are returned, not logged.
func (a *Agent) Generate(ctx context.Context, req Request, apiKey string) (Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		if errors.Is(err, ErrEmptyTopic) {
			metrics.IncGeneration("empty_topic")
		} else {
			metrics.IncGeneration("invalid")
		}
		return Result{}, err
	}

	key := strings.TrimSpace(apiKey)
	if a.source == KeySourceEnv {
		key = a.envKey
	}
	if key == "" {
		metrics.IncGeneration("missing_credential")
		return Result{}, ErrMissingCredential
	}

	client, err := a.newClient(key)
	if err != nil {
		metrics.IncGeneration(outcome(err))
		metrics.IncError("llm", "client_init")
		return Result{}, err
	}

	prompt := BuildPrompt(req, a.source)
	a.logger.Debug("invoking llm", "model", a.model, "platform", req.Platform, "tone", req.Tone, "length", req.Length)

	start := time.Now()
	metrics.IncLLMRequest(a.model)
	raw, err := client.Complete(ctx, prompt)
	elapsed := time.Since(start)
	metrics.ObserveLLMDuration(elapsed)
	if err != nil {
		metrics.IncGeneration(outcome(err))
		metrics.IncError("llm", outcome(err))
		return Result{}, err
	}

	res, err := PostProcess(raw)
	if err != nil {
		metrics.IncGeneration("error")
		metrics.IncError("llm", "postprocess")
		return Result{}, err
	}
	res.ID = uuid.NewString()
	res.Model = a.model
	res.CreatedAt = time.Now().UTC()
	res.Duration = elapsed

	metrics.IncGeneration("ok")
	a.logger.Info("content generated", "id", res.ID, "model", a.model, "duration", elapsed, "chars", len(res.Markdown))
	return res, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrAuth):
		return "auth"
	default:
		return "error"
	}
}
