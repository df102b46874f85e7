package model

import "time"

// AccountState is the persisted account balance used for sizing.
type AccountState struct {
	Balance   float64   `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
