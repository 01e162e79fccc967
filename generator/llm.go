package generator

import (
	"context"
	"time"
)

// LLMClient abstracts the hosted model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ClientFactory builds a client bound to one credential.
type ClientFactory func(apiKey string) (LLMClient, error)

// LLMSettings is the base configuration handed to concrete clients.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}
