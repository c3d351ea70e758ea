package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/goalstream/internal/form"
	"github.com/user/goalstream/internal/types"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(t.TempDir(), "gpt-4", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.EnsureDefaults(); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRenderMissingTemplate(t *testing.T) {
	r, err := NewRenderer(t.TempDir(), "gpt-4", 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Render("nope.tmpl", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("got %v, want ErrTemplateNotFound", err)
	}
}

func TestEnsureDefaultsKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, SIPOrchestratorTemplate)
	if err := os.WriteFile(custom, []byte("custom {{.goal_type}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewRenderer(dir, "gpt-4", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.EnsureDefaults(); err != nil {
		t.Fatal(err)
	}
	out, err := r.Render(SIPOrchestratorTemplate, map[string]any{"goal_type": "Retirement"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "custom Retirement" {
		t.Errorf("existing template was overwritten: %q", out)
	}
}

func TestRenderSIPIncludesHorizon(t *testing.T) {
	r := newRenderer(t)
	data := types.FormData{
		"goal_type":         form.GoalRetirement,
		"current_age":       float64(30),
		"retirement_age":    float64(60),
		"currency":          "INR",
		"target_amount_min": float64(10000000),
		"risk_appetite":     "moderate",
	}
	out, err := r.RenderSIP(data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "30 years") {
		t.Error("expected derived horizon in prompt")
	}
	if !strings.Contains(out, "360 months") {
		t.Error("expected derived total months in prompt")
	}
	if !strings.Contains(out, "Retirement") {
		t.Error("expected goal type in prompt")
	}
}

func TestRenderFundRecommendationEmbedsReport(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderFundRecommendation(types.FormData{
		"goal_type":     form.GoalRetirement,
		"risk_appetite": "high",
		"currency":      "INR",
	}, "# Plan\n60% equity, 40% debt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "60% equity") {
		t.Error("expected report markdown in prompt")
	}
}

func TestCountTokens(t *testing.T) {
	r := newRenderer(t)
	if n := r.CountTokens("hello world"); n == 0 {
		t.Error("expected a nonzero token count")
	}
}

func TestUnknownModelFallsBack(t *testing.T) {
	if _, err := NewRenderer(t.TempDir(), "not-a-model", 0); err != nil {
		t.Fatalf("expected tokenizer fallback, got %v", err)
	}
}
