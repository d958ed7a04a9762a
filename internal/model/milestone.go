package model

import "time"

// Milestone is a terminal progression event mirrored to the cloud profile.
type Milestone struct {
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Level     int       `json:"level"`
	XP        int       `json:"xp"`
	Seq       uint64    `json:"seq"`
	ReachedAt time.Time `json:"reachedAt"`
}
