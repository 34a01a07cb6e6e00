// Package players provides the demo domain for presence tracking: a trivial
// player table in an embedded SQLite database, exposed as a record source.
package players

import "time"

// Player is one row of the player table.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}
