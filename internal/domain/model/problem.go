package model

import "time"

// ProblemTest is one weighted test case declared in the problem definition.
// Weight is relative importance in the 0-100 range; weights need not sum to 100.
type ProblemTest struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Weight         int    `json:"weight"`
}

type Problem struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Revision      string        `json:"revision"`
	BaseScore     int           `json:"base_score"`
	TimeLimitMs   int           `json:"time_limit_ms"`
	MemoryLimitKb int           `json:"memory_limit_kb"`
	Tests         []ProblemTest `json:"tests"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
