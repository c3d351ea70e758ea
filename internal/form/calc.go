package form

import (
	"fmt"
	"math"
	"time"

	"github.com/user/goalstream/internal/types"
)

// defaultReturns maps risk appetite to annual return when the binding
// label carries no figure.
var defaultReturns = map[string]float64{
	"very_low":      0.05,
	"low":           0.07,
	"low_moderate":  0.08,
	"moderate":      0.10,
	"high_moderate": 0.11,
	"high":          0.12,
	"very_high":     0.14,
}

const fallbackReturn = 0.10

// CalculationResult is the outcome of a SIP projection.
type CalculationResult struct {
	TimeHorizonYears    int                `json:"time_horizon_years"`
	TotalMonths         int                `json:"total_months"`
	MonthlySIPAmount    float64            `json:"monthly_sip_amount"`
	TotalInvestment     float64            `json:"total_investment"`
	ExpectedReturns     float64            `json:"expected_returns"`
	RiskAdjustedReturns map[string]float64 `json:"risk_adjusted_returns"`
}

// ExpectedReturn resolves the annual return for a risk appetite,
// preferring the binding's option labels over the built-in map.
func (l *Loader) ExpectedReturn(risk string) float64 {
	if r, ok := l.ExpectedReturnFor(risk); ok {
		return r
	}
	if r, ok := defaultReturns[risk]; ok {
		return r
	}
	return fallbackReturn
}

// TimeHorizonYears derives the investment horizon from the goal type's
// age or year fields.
func TimeHorizonYears(data types.FormData) int {
	num := func(key string, def float64) float64 {
		if v, ok := data.Number(key); ok {
			return v
		}
		return def
	}
	switch data.GoalType() {
	case GoalRetirement:
		return int(num("retirement_age", 60) - num("current_age", 30))
	case GoalChildEducation:
		return int(num("education_start_age", 18) - num("child_current_age", 0))
	case GoalChildMarriage:
		return int(num("marriage_age", 25) - num("child_current_age", 0))
	case GoalHousePurchase:
		year := time.Now().Year()
		return int(num("target_purchase_year", float64(year+5))) - year
	case GoalGeneralWealth:
		return int(num("override_time_horizon_years", 10))
	}
	return 10
}

// MonthlySIP computes the monthly contribution that grows to target over
// the horizon at the given annual return, compounding monthly.
// PMT = FV * r / ((1+r)^n - 1).
func MonthlySIP(target float64, years int, annualReturn float64) (float64, error) {
	if years <= 0 {
		return 0, fmt.Errorf("time horizon must be positive")
	}
	months := years * 12
	monthlyReturn := annualReturn / 12
	if monthlyReturn == 0 {
		return target / float64(months), nil
	}
	factor := (math.Pow(1+monthlyReturn, float64(months)) - 1) / monthlyReturn
	return target / factor, nil
}

// Calculate validates a submission and produces the full projection,
// including conservative, optimistic, and pessimistic scenarios.
func (l *Loader) Calculate(data types.FormData) (*CalculationResult, error) {
	if err := l.Validate(data); err != nil {
		return nil, err
	}
	years := TimeHorizonYears(data)
	target, _ := data.Number("target_amount_min")
	risk, _ := data["risk_appetite"].(string)
	annual := l.ExpectedReturn(risk)

	monthly, err := MonthlySIP(target, years, annual)
	if err != nil {
		return nil, err
	}
	totalMonths := years * 12
	totalInvestment := monthly * float64(totalMonths)

	scenarios := map[string]float64{}
	for name, scale := range map[string]float64{
		"conservative": 0.8,
		"optimistic":   1.2,
		"pessimistic":  0.6,
	} {
		sip, err := MonthlySIP(target, years, annual*scale)
		if err != nil {
			return nil, err
		}
		scenarios[name] = round2(sip)
	}

	return &CalculationResult{
		TimeHorizonYears:    years,
		TotalMonths:         totalMonths,
		MonthlySIPAmount:    round2(monthly),
		TotalInvestment:     round2(totalInvestment),
		ExpectedReturns:     round2(target - totalInvestment),
		RiskAdjustedReturns: scenarios,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
