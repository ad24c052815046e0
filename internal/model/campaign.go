// internal/model/campaign.go
package model

import "time"

// Campaign is the top-level grouping of batches.
type Campaign struct {
    ID        int        `db:"id" json:"id"`
    Name      string     `db:"name" json:"name"`
    CreatedAt time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
