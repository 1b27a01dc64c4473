package models

import (
	"time"
)

// Account represents an API account with its usage ledger
type Account struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	APIKey          string    `json:"api_key,omitempty" db:"api_key"`
	MinutesConsumed float64   `json:"minutes_consumed" db:"minutes_consumed"`
	FreeMinutesUsed float64   `json:"free_minutes_used" db:"free_minutes_used"`
	TotalCost       float64   `json:"total_cost" db:"total_cost"`
	AllowedMinutes  float64   `json:"allowed_minutes" db:"allowed_minutes"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// UsageSummary is the externally visible view of an account's ledger
type UsageSummary struct {
	Email            string  `json:"email"`
	MinutesConsumed  float64 `json:"minutes_consumed"`
	FreeMinutesUsed  float64 `json:"free_minutes_used"`
	TotalCost        float64 `json:"total_cost"`
	MinutesRemaining float64 `json:"minutes_remaining"`
	CostPerMinute    float64 `json:"cost_per_minute"`
	AllowedMinutes   float64 `json:"allowed_minutes"`
}
