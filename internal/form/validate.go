package form

import (
	"fmt"
	"time"

	"github.com/user/goalstream/internal/types"
)

// Goal type names as they appear in submissions and the binding file.
const (
	GoalRetirement     = "Retirement"
	GoalChildEducation = "Child Education"
	GoalChildMarriage  = "Child Marriage"
	GoalHousePurchase  = "House Purchase"
	GoalGeneralWealth  = "General Wealth Creation"
)

// goalValidators holds the per-goal-type rules. Goal types discovered
// only from the binding file fall back to the base checks.
var goalValidators = map[string]func(types.FormData) error{
	GoalRetirement:     validateRetirement,
	GoalChildEducation: validateChildEducation,
	GoalChildMarriage:  validateChildMarriage,
	GoalHousePurchase:  validateHousePurchase,
	GoalGeneralWealth:  validateGeneralWealth,
}

// Validate checks a submission against the base rules and the rules for
// its goal type. A goal type absent from both the built-in set and the
// binding is rejected.
func (l *Loader) Validate(data types.FormData) error {
	goalType := data.GoalType()
	if goalType == "" {
		return fmt.Errorf("goal_type is required")
	}
	if err := validateBase(data); err != nil {
		return err
	}
	if v, ok := goalValidators[goalType]; ok {
		return v(data)
	}
	if _, known := l.Binding().FormConfig.Fields.ConditionalFields[goalType]; known {
		return nil
	}
	return fmt.Errorf("invalid goal type: %s", goalType)
}

func validateBase(data types.FormData) error {
	age, ok := data.Number("current_age")
	if !ok {
		return fmt.Errorf("current_age is required")
	}
	if age < 18 || age > 80 {
		return fmt.Errorf("current_age must be between 18 and 80")
	}
	target, ok := data.Number("target_amount_min")
	if !ok {
		return fmt.Errorf("target_amount_min is required")
	}
	if target < 1000 {
		return fmt.Errorf("target_amount_min must be at least 1000")
	}
	if risk, _ := data["risk_appetite"].(string); risk == "" {
		return fmt.Errorf("risk_appetite is required")
	}
	return nil
}

func requireRange(data types.FormData, key string, lo, hi float64) (float64, error) {
	v, ok := data.Number(key)
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %g and %g", key, lo, hi)
	}
	return v, nil
}

func validateRetirement(data types.FormData) error {
	retAge, err := requireRange(data, "retirement_age", 50, 80)
	if err != nil {
		return err
	}
	curAge, _ := data.Number("current_age")
	if retAge <= curAge {
		return fmt.Errorf("retirement age must be greater than current age")
	}
	return nil
}

func validateChildEducation(data types.FormData) error {
	childAge, err := requireRange(data, "child_current_age", 0, 25)
	if err != nil {
		return err
	}
	startAge, err := requireRange(data, "education_start_age", 16, 30)
	if err != nil {
		return err
	}
	if startAge <= childAge {
		return fmt.Errorf("education start age must be greater than child current age")
	}
	return nil
}

func validateChildMarriage(data types.FormData) error {
	childAge, err := requireRange(data, "child_current_age", 0, 30)
	if err != nil {
		return err
	}
	marriageAge, err := requireRange(data, "marriage_age", 21, 35)
	if err != nil {
		return err
	}
	if marriageAge <= childAge {
		return fmt.Errorf("marriage age must be greater than child current age")
	}
	return nil
}

func validateHousePurchase(data types.FormData) error {
	year, err := requireRange(data, "target_purchase_year", 2025, 2050)
	if err != nil {
		return err
	}
	if int(year) <= time.Now().Year() {
		return fmt.Errorf("target purchase year must be in the future")
	}
	return nil
}

func validateGeneralWealth(data types.FormData) error {
	_, err := requireRange(data, "override_time_horizon_years", 1, 40)
	return err
}
