package form

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Option is one selectable value for a dropdown field. Labels may carry
// an expected-return hint in the form "Name (12%)".
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one form input.
type Field struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

// Fields groups the form inputs into the unconditional set and the
// per-goal-type conditional sets.
type Fields struct {
	AlwaysRequired    []Field            `json:"always_required"`
	ConditionalFields map[string][]Field `json:"conditional_fields"`
}

// FormConfig is the UI-facing form description.
type FormConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Fields      Fields `json:"fields"`
}

// Binding is the full form-binding document: the form layout plus the
// computed-field formulas and sample submissions.
type Binding struct {
	FormConfig     FormConfig                   `json:"formConfig"`
	ComputedFields map[string]map[string]string `json:"computed_fields,omitempty"`
	SampleData     map[string]map[string]any    `json:"sample_data,omitempty"`
}

// RiskProfile is the expanded view of one risk-appetite option.
type RiskProfile struct {
	Value          string `json:"value"`
	Label          string `json:"label"`
	ExpectedReturn string `json:"expected_return"`
	Description    string `json:"description"`
	RiskLevel      int    `json:"risk_level"`
}

// Loader reads the binding document from disk and serves it to the
// validator, the calculator, and the HTTP handlers. Reload swaps the
// document atomically.
type Loader struct {
	path string

	mu      sync.RWMutex
	binding *Binding
}

// NewLoader creates a loader for the given binding file. The file is
// not read until Load is called.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the binding file, creating it with defaults when missing.
func (l *Loader) Load() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		b := DefaultBinding()
		if werr := l.writeDefault(b); werr != nil {
			slog.Warn("could not write default form binding", "path", l.path, "error", werr)
		}
		l.mu.Lock()
		l.binding = b
		l.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read form binding: %w", err)
	}
	var b Binding
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("parse form binding: %w", err)
	}
	l.mu.Lock()
	l.binding = &b
	l.mu.Unlock()
	return nil
}

// Reload re-reads the binding file. The previous document stays in
// effect when the reload fails.
func (l *Loader) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read form binding: %w", err)
	}
	var b Binding
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("parse form binding: %w", err)
	}
	l.mu.Lock()
	l.binding = &b
	l.mu.Unlock()
	return nil
}

// Binding returns the current document, falling back to defaults when
// Load was never called.
func (l *Loader) Binding() *Binding {
	l.mu.RLock()
	b := l.binding
	l.mu.RUnlock()
	if b == nil {
		return DefaultBinding()
	}
	return b
}

// GoalTypes lists the goal types the binding knows about.
func (l *Loader) GoalTypes() []string {
	b := l.Binding()
	types := make([]string, 0, len(b.FormConfig.Fields.ConditionalFields))
	for gt := range b.FormConfig.Fields.ConditionalFields {
		types = append(types, gt)
	}
	return types
}

// ConditionalFor returns the conditional fields for a goal type. An
// unknown goal type yields an empty slice, not an error.
func (l *Loader) ConditionalFor(goalType string) []Field {
	fields := l.Binding().FormConfig.Fields.ConditionalFields[goalType]
	if fields == nil {
		return []Field{}
	}
	return fields
}

// ExpectedReturnFor extracts the annual return for a risk appetite from
// the option label, e.g. "High (12%)" yields 0.12. Returns false when
// the binding carries no parseable figure for that value.
func (l *Loader) ExpectedReturnFor(risk string) (float64, bool) {
	for _, f := range l.Binding().FormConfig.Fields.AlwaysRequired {
		if f.Name != "risk_appetite" {
			continue
		}
		for _, opt := range f.Options {
			if opt.Value != risk {
				continue
			}
			return parseReturnLabel(opt.Label)
		}
	}
	return 0, false
}

// RiskProfiles expands the risk-appetite options into profile records.
func (l *Loader) RiskProfiles() []RiskProfile {
	var profiles []RiskProfile
	for _, f := range l.Binding().FormConfig.Fields.AlwaysRequired {
		if f.Name != "risk_appetite" {
			continue
		}
		for i, opt := range f.Options {
			p := RiskProfile{
				Value:          opt.Value,
				Label:          opt.Label,
				ExpectedReturn: "N/A",
				Description:    opt.Label,
				RiskLevel:      i + 1,
			}
			if idx := strings.Index(opt.Label, " ("); idx >= 0 && strings.Contains(opt.Label, "%") {
				p.Description = opt.Label[:idx]
				p.Label = opt.Label[:idx]
				open := strings.Index(opt.Label, "(")
				if close := strings.Index(opt.Label[open:], ")"); close > 0 {
					p.ExpectedReturn = opt.Label[open+1 : open+close]
				}
			}
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// SampleData returns the sample submissions from the binding, or a
// built-in pair when the document carries none.
func (l *Loader) SampleData() map[string]map[string]any {
	if sd := l.Binding().SampleData; len(sd) > 0 {
		return sd
	}
	return defaultSampleData()
}

func (l *Loader) writeDefault(b *Binding) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o644)
}

func parseReturnLabel(label string) (float64, bool) {
	open := strings.Index(label, "(")
	pct := strings.Index(label, "%")
	if open < 0 || pct < open {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(label[open+1:pct]), 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

func fptr(v float64) *float64 { return &v }

// DefaultBinding returns the built-in form layout, used when no binding
// file exists yet.
func DefaultBinding() *Binding {
	return &Binding{
		FormConfig: FormConfig{
			Title:       "SIP Goal Planning",
			Description: "Plan a systematic investment toward a financial goal",
			Fields: Fields{
				AlwaysRequired: []Field{
					{Name: "goal_type", Label: "Goal Type", Type: "select", Required: true, Options: []Option{
						{Value: GoalRetirement, Label: "Retirement"},
						{Value: GoalChildEducation, Label: "Child Education"},
						{Value: GoalChildMarriage, Label: "Child Marriage"},
						{Value: GoalHousePurchase, Label: "House Purchase"},
						{Value: GoalGeneralWealth, Label: "General Wealth Creation"},
					}},
					{Name: "current_age", Label: "Current Age", Type: "number", Required: true, Min: fptr(18), Max: fptr(80)},
					{Name: "currency", Label: "Currency", Type: "select", Required: true, Options: []Option{
						{Value: "INR", Label: "INR"},
						{Value: "USD", Label: "USD"},
						{Value: "EUR", Label: "EUR"},
					}},
					{Name: "target_amount_min", Label: "Target Amount", Type: "number", Required: true, Min: fptr(1000)},
					{Name: "risk_appetite", Label: "Risk Appetite", Type: "select", Required: true, Options: []Option{
						{Value: "very_low", Label: "Very Low (5%)"},
						{Value: "low", Label: "Low (7%)"},
						{Value: "low_moderate", Label: "Low Moderate (8%)"},
						{Value: "moderate", Label: "Moderate (10%)"},
						{Value: "high_moderate", Label: "High Moderate (11%)"},
						{Value: "high", Label: "High (12%)"},
						{Value: "very_high", Label: "Very High (14%)"},
					}},
				},
				ConditionalFields: map[string][]Field{
					GoalRetirement: {
						{Name: "retirement_age", Label: "Retirement Age", Type: "number", Required: true, Min: fptr(50), Max: fptr(80)},
					},
					GoalChildEducation: {
						{Name: "child_current_age", Label: "Child's Current Age", Type: "number", Required: true, Min: fptr(0), Max: fptr(25)},
						{Name: "education_start_age", Label: "Education Start Age", Type: "number", Required: true, Min: fptr(16), Max: fptr(30)},
					},
					GoalChildMarriage: {
						{Name: "child_current_age", Label: "Child's Current Age", Type: "number", Required: true, Min: fptr(0), Max: fptr(30)},
						{Name: "marriage_age", Label: "Expected Marriage Age", Type: "number", Required: true, Min: fptr(21), Max: fptr(35)},
					},
					GoalHousePurchase: {
						{Name: "target_purchase_year", Label: "Target Purchase Year", Type: "number", Required: true, Min: fptr(2025), Max: fptr(2050)},
					},
					GoalGeneralWealth: {
						{Name: "override_time_horizon_years", Label: "Time Horizon (Years)", Type: "number", Required: true, Min: fptr(1), Max: fptr(40)},
					},
				},
			},
		},
	}
}

func defaultSampleData() map[string]map[string]any {
	return map[string]map[string]any{
		"retirement_example": {
			"goal_type":         GoalRetirement,
			"current_age":       30,
			"retirement_age":    60,
			"currency":          "INR",
			"target_amount_min": 10000000,
			"risk_appetite":     "moderate",
		},
		"child_education_example": {
			"goal_type":           GoalChildEducation,
			"current_age":         35,
			"child_current_age":   5,
			"education_start_age": 18,
			"currency":            "INR",
			"target_amount_min":   2500000,
			"risk_appetite":       "high_moderate",
		},
	}
}
