package usecase

import (
	"fmt"
	"strings"
	"text/template"

	"scoutchat/internal/infra/config"
)

// promptData is what prompt templates see.
type promptData struct {
	Query   string
	Results string
}

// PromptBuilder renders the final user prompt sent to the model.
type PromptBuilder struct {
	augmented *template.Template
	fallback  *template.Template
}

// NewPromptBuilder parses the configured templates. Empty sources use the
// built-in defaults.
func NewPromptBuilder(cfg config.PromptConfig) (*PromptBuilder, error) {
	if cfg.Augmented == "" {
		cfg.Augmented = config.DefaultAugmentedPrompt
	}
	if cfg.Fallback == "" {
		cfg.Fallback = config.DefaultFallbackPrompt
	}
	aug, err := template.New("augmented").Option("missingkey=error").Parse(cfg.Augmented)
	if err != nil {
		return nil, fmt.Errorf("parse augmented prompt: %w", err)
	}
	fb, err := template.New("fallback").Option("missingkey=error").Parse(cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("parse fallback prompt: %w", err)
	}
	return &PromptBuilder{augmented: aug, fallback: fb}, nil
}

// Augmented folds search results into the prompt.
func (b *PromptBuilder) Augmented(query, results string) (string, error) {
	return render(b.augmented, promptData{Query: query, Results: results})
}

// Fallback is used when web mode is on but the search failed.
func (b *PromptBuilder) Fallback(query string) (string, error) {
	return render(b.fallback, promptData{Query: query})
}

func render(t *template.Template, data promptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
