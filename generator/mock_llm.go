package generator

import (
	"context"
	"strings"
)

// MockLLM is a local stand-in that never calls the network.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	var sb strings.Builder
	sb.WriteString("# Sample generated copy\n\n")
	sb.WriteString("This text was produced by the mock client.\n\n")
	sb.WriteString("## Prompt\n\n")
	sb.WriteString("```\n")
	sb.WriteString(prompt.User)
	sb.WriteString("```\n")
	return sb.String(), nil
}

// MockFactory ignores the key and always returns MockLLM.
func MockFactory(string) (LLMClient, error) {
	return MockLLM{}, nil
}
