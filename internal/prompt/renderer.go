package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/goalstream/internal/form"
	"github.com/user/goalstream/internal/types"
)

// Template names looked up under the renderer's directory.
const (
	SIPOrchestratorTemplate = "sip_orchestrator.tmpl"
	FundRecommendTemplate   = "fund_recommendation.tmpl"
)

// ErrTemplateNotFound is returned when the named template file does not
// exist in the template directory.
var ErrTemplateNotFound = errors.New("template not found")

// Renderer populates engine prompts from template files and keeps a
// token budget so oversized prompts are flagged before execution.
type Renderer struct {
	dir       string
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// NewRenderer creates a renderer over the template directory. model
// selects the tokenizer; unknown models fall back to cl100k_base.
// maxTokens of 0 disables budget warnings.
func NewRenderer(dir, model string, maxTokens int) (*Renderer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Renderer{dir: dir, tokenizer: enc, maxTokens: maxTokens}, nil
}

// CountTokens returns the token count for a string.
func (r *Renderer) CountTokens(text string) int {
	return len(r.tokenizer.Encode(text, nil, nil))
}

// Render loads the named template from the directory and executes it
// with vars. Prompts over the token budget render anyway; the overrun
// is logged, not fatal.
func (r *Renderer) Render(name string, vars map[string]any) (string, error) {
	path := filepath.Join(r.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}

	out := buf.String()
	if r.maxTokens > 0 {
		if n := r.CountTokens(out); n > r.maxTokens {
			slog.Warn("prompt exceeds token budget", "template", name, "tokens", n, "budget", r.maxTokens)
		}
	}
	return out, nil
}

// RenderSIP builds the orchestrator prompt for a goal-planning run. The
// submission is augmented with the derived horizon fields the template
// expects.
func (r *Renderer) RenderSIP(data types.FormData) (string, error) {
	vars := make(map[string]any, len(data)+2)
	for k, v := range data {
		vars[k] = v
	}
	years := form.TimeHorizonYears(data)
	vars["override_time_horizon_years"] = years
	vars["total_months"] = years * 12
	return r.Render(SIPOrchestratorTemplate, vars)
}

// RenderFundRecommendation builds the fund-selection prompt around a
// previously generated report, supplied as markdown.
func (r *Renderer) RenderFundRecommendation(data types.FormData, reportMarkdown string) (string, error) {
	vars := make(map[string]any, len(data)+1)
	for k, v := range data {
		vars[k] = v
	}
	vars["report_markdown"] = reportMarkdown
	return r.Render(FundRecommendTemplate, vars)
}

// EnsureDefaults writes the built-in templates for any that are missing
// from the directory, so a fresh install can run without hand-authored
// prompt files.
func (r *Renderer) EnsureDefaults() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	defaults := map[string]string{
		SIPOrchestratorTemplate: defaultSIPTemplate,
		FundRecommendTemplate:   defaultFundTemplate,
	}
	for name, content := range defaults {
		path := filepath.Join(r.dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write default template %s: %w", name, err)
		}
		slog.Info("wrote default prompt template", "path", path)
	}
	return nil
}
