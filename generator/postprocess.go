package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// PostProcess keeps the model output verbatim and renders it for display.
// Raw HTML in the output is not passed through.
func PostProcess(raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, fmt.Errorf("%w: model returned empty text", ErrGeneration)
	}
	html, err := mdToHTML(raw)
	if err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	return Result{
		Markdown: raw,
		HTML:     html,
	}, nil
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
