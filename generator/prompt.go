package generator

import (
	"fmt"
	"strings"
)

// Prompt is the two-message exchange sent to the model.
type Prompt struct {
	System string
	User   string
}

const (
	systemForm = "You are a digital marketing expert specialized in SEO and persuasive copywriting."
	systemEnv  = "You are an expert in digital marketing, SEO and persuasive copywriting."
)

// SystemInstruction returns the persona message for the given deployment.
func SystemInstruction(src KeySource) string {
	if src == KeySourceEnv {
		return systemEnv
	}
	return systemForm
}

const (
	clauseCTA      = "Include a clear Call to Action."
	clauseNoCTA    = "Do not include a Call to Action."
	clauseTags     = "Include relevant hashtags."
	clauseNoTags   = "Do not include hashtags."
	keywordsPrefix = "- Keywords: "
)

// BuildUserPrompt renders the request into the instruction text. It is pure.
func BuildUserPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write an SEO-optimized text on the topic '%s'.\n", req.Topic))
	sb.WriteString(fmt.Sprintf("- Platform: %s.\n", req.Platform))
	sb.WriteString(fmt.Sprintf("- Tone: %s.\n", req.Tone))
	sb.WriteString(fmt.Sprintf("- Target audience: %s.\n", req.Audience))
	sb.WriteString(fmt.Sprintf("- Length: %s.\n", req.Length))
	if req.IncludeCTA {
		sb.WriteString("- " + clauseCTA + "\n")
	} else {
		sb.WriteString("- " + clauseNoCTA + "\n")
	}
	if req.IncludeHashtags {
		sb.WriteString("- " + clauseTags + "\n")
	} else {
		sb.WriteString("- " + clauseNoTags + "\n")
	}
	if kw := strings.TrimSpace(req.Keywords); kw != "" {
		sb.WriteString(keywordsPrefix + kw + "\n")
	}
	return sb.String()
}

func BuildPrompt(req Request, src KeySource) Prompt {
	return Prompt{
		System: SystemInstruction(src),
		User:   BuildUserPrompt(req),
	}
}
