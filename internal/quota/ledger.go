// Package quota implements the usage accounting arithmetic for account
// ledgers. All functions are pure; persistence and per-account
// serialization live in the database layer.
package quota

import (
	"errors"
	"math"

	"github.com/subvoc/subvoc/pkg/models"
)

// ErrNegativeDuration is returned when a charge is attempted with a
// negative duration. No ledger state is mutated in that case.
var ErrNegativeDuration = errors.New("duration must not be negative")

// Charge is the result of applying a duration against an account ledger.
type Charge struct {
	Minutes         float64
	BillableMinutes float64
	Cost            float64
}

// Round2 rounds a monetary or duration value to two decimal places.
// Applied at the boundary of every externally observable read.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RemainingFreeMinutes returns how many free minutes the account has left.
func RemainingFreeMinutes(a *models.Account) float64 {
	return Round2(math.Max(0, a.AllowedMinutes-a.FreeMinutesUsed))
}

// EstimateCost returns the cost of processing the given duration with
// the account's current free allowance. Minutes within the allowance
// cost zero; the remainder is billed at ratePerMinute.
func EstimateCost(a *models.Account, minutes, ratePerMinute float64) float64 {
	billable := math.Max(0, minutes-RemainingFreeMinutes(a))
	return Round2(billable * ratePerMinute)
}

// CanAfford reports whether the account may process the given duration.
func CanAfford(a *models.Account, minutes, ratePerMinute float64) bool {
	return RemainingFreeMinutes(a) >= minutes || EstimateCost(a, minutes, ratePerMinute) == 0
}

// Apply charges the given duration against the account, mutating its
// ledger fields. freeMinutesUsed is clamped to the allowance; only
// minutes beyond it contribute to totalCost. Callers must hold the
// account's row lock so that concurrent read-modify-write cycles do not
// interleave.
func Apply(a *models.Account, minutes, ratePerMinute float64) (Charge, error) {
	if minutes < 0 {
		return Charge{}, ErrNegativeDuration
	}

	freeBefore := a.FreeMinutesUsed
	billable := math.Max(0, (freeBefore+minutes)-a.AllowedMinutes)
	cost := billable * ratePerMinute

	a.MinutesConsumed = Round2(a.MinutesConsumed + minutes)
	a.FreeMinutesUsed = Round2(math.Min(freeBefore+minutes, a.AllowedMinutes))
	a.TotalCost = Round2(a.TotalCost + cost)

	return Charge{
		Minutes:         Round2(minutes),
		BillableMinutes: Round2(billable),
		Cost:            Round2(cost),
	}, nil
}

// Summarize builds the externally visible usage view of an account.
func Summarize(a *models.Account, ratePerMinute float64) models.UsageSummary {
	return models.UsageSummary{
		Email:            a.Email,
		MinutesConsumed:  Round2(a.MinutesConsumed),
		FreeMinutesUsed:  Round2(a.FreeMinutesUsed),
		TotalCost:        Round2(a.TotalCost),
		MinutesRemaining: RemainingFreeMinutes(a),
		CostPerMinute:    ratePerMinute,
		AllowedMinutes:   a.AllowedMinutes,
	}
}
