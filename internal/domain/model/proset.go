package model

import "time"

// ProSet is a problem set tagged with the category its problems count toward.
type ProSet struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProItem places a problem inside a problem set. The same problem may appear in
// several sets, or in the same set more than once, each placement with its own
// hidden flag and optional deadline.
type ProItem struct {
	ID        int        `json:"id"`
	ProSetID  int        `json:"proset_id"`
	ProblemID int        `json:"problem_id"`
	Hidden    bool       `json:"hidden"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
