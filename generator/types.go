package generator

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// KeySource tells where the API credential comes from.
type KeySource string

const (
	// KeySourceForm expects the user to type the key with every submission.
	KeySourceForm KeySource = "form"
	// KeySourceEnv uses the key loaded from the environment at startup.
	KeySourceEnv KeySource = "env"
)

var (
	Platforms = []string{"Instagram", "Facebook", "LinkedIn", "Blog", "E-mail"}
	Tones     = []string{"Normal", "Informative", "Inspiring", "Urgent", "Informal"}
	Lengths   = []string{"Short", "Medium", "Long"}
	Audiences = []string{"All", "Young adults", "Families", "Seniors", "Teenagers"}
)

// FormOptions lists the selectable values in display order.
type FormOptions struct {
	Platforms []string `json:"platforms"`
	Tones     []string `json:"tones"`
	Lengths   []string `json:"lengths"`
	Audiences []string `json:"audiences"`
}

func Options() FormOptions {
	return FormOptions{
		Platforms: slices.Clone(Platforms),
		Tones:     slices.Clone(Tones),
		Lengths:   slices.Clone(Lengths),
		Audiences: slices.Clone(Audiences),
	}
}

// Request is what the user submits: one piece of marketing copy to write.
type Request struct {
	Topic           string `json:"topic" validate:"required"`
	Platform        string `json:"platform" validate:"platform"`
	Tone            string `json:"tone" validate:"tone"`
	Length          string `json:"length" validate:"length"`
	Audience        string `json:"audience" validate:"audience"`
	IncludeCTA      bool   `json:"include_cta"`
	IncludeHashtags bool   `json:"include_hashtags"`
	Keywords        string `json:"keywords,omitempty"`
}

// Normalize trims free text and fills unset choices with the first option.
func (r *Request) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Keywords = strings.TrimSpace(r.Keywords)
	r.Platform = orFirst(strings.TrimSpace(r.Platform), Platforms)
	r.Tone = orFirst(strings.TrimSpace(r.Tone), Tones)
	r.Length = orFirst(strings.TrimSpace(r.Length), Lengths)
	r.Audience = orFirst(strings.TrimSpace(r.Audience), Audiences)
}

func orFirst(v string, opts []string) string {
	if v == "" {
		return opts[0]
	}
	return v
}

// Validate expects a normalized request. Whitespace-only topics count as empty.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: strings.ToLower(fe.Field()), Value: fmt.Sprint(fe.Value())}
	}
	return err
}

// Result is one generated piece of copy.
type Result struct {
	ID        string        `json:"id"`
	Markdown  string        `json:"markdown"`
	HTML      string        `json:"html"`
	Model     string        `json:"model,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// validate is shared; validator caches struct metadata per instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
	for tag, opts := range map[string][]string{
		"platform": Platforms,
		"tone":     Tones,
		"length":   Lengths,
		"audience": Audiences,
	} {
		if err := validate.RegisterValidation(tag, oneOf(opts)); err != nil {
			panic(fmt.Sprintf("register %s validator: %v", tag, err))
		}
	}
}

func oneOf(opts []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(opts, fl.Field().String())
	}
}
