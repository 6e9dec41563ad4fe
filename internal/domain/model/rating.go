package model

import (
	"math"
	"time"
)

// Category is the competitive pool a user (and a problem set) belongs to.
// CategoryUniverse is the "no pool" value: users in it are excluded from
// rating, and it never appears as a key in the derived rating tables.
type Category int

const (
	CategoryUniverse Category = 0
	CategoryClang    Category = 1
	CategoryPylang   Category = 2
)

func (c Category) String() string {
	switch c {
	case CategoryUniverse:
		return "universe"
	case CategoryClang:
		return "clang"
	case CategoryPylang:
		return "pylang"
	}
	return "unknown"
}

// Rated reports whether the category participates in rating.
func (c Category) Rated() bool {
	return c == CategoryClang || c == CategoryPylang
}

// RatedCategories returns every category that participates in rating.
func RatedCategories() []Category {
	return []Category{CategoryClang, CategoryPylang}
}

// TestWeight mirrors one (problem, test case) weight declared in the problem
// definition, with the derived per-test score budget.
type TestWeight struct {
	ProblemID int `json:"problem_id"`
	Index     int `json:"index"`
	Weight    int `json:"weight"`
	Score     int `json:"score"`
}

// RateCount is the number of distinct users in a category who solved a test
// case before its effective deadline, with the popularity-scaled base score.
type RateCount struct {
	Category  Category `json:"category"`
	ProblemID int      `json:"problem_id"`
	Index     int      `json:"index"`
	Count     int      `json:"count"`
	Score     int      `json:"score"`
}

// RateScore is the score one user earned on one test case after late penalty.
// Rows with non-positive scores are never persisted.
type RateScore struct {
	Category  Category `json:"category"`
	UserID    string   `json:"user_id"`
	ProblemID int      `json:"problem_id"`
	Index     int      `json:"index"`
	Score     int      `json:"score"`
}

// ProblemRate is the read-side view of one test case's acceptance statistics.
type ProblemRate struct {
	Index int `json:"index"`
	Count int `json:"count"`
	Score int `json:"score"`
}

// DefaultScoreFactor scales a test weight score into the base value used when
// no acceptance data exists yet. It equals the popularity curve's ceiling,
// 2^(28/14), so an unsolved test is worth as much as a first solve.
const DefaultScoreFactor = 4

const secondsPerDay = 86400.0

// TestScore derives the per-test score budget from the problem's base score
// and the test's relative weight.
func TestScore(baseScore, weight int) int {
	return baseScore * weight / 100
}

// AcceptanceScore scales a test weight score by the popularity curve
// 2^(28/(count+13)). The curve is strictly decreasing in count and approaches
// the weight score as the solver count grows.
func AcceptanceScore(weightScore, count int) int {
	return int(float64(weightScore) * math.Pow(2, 28.0/float64(count+13)))
}

// LateRatio returns the remaining credit after the late-submission penalty:
// full credit at or before the deadline, then a flat 15% per started day late,
// bottoming out at zero. A nil deadline means no penalty ever applies.
func LateRatio(deadline *time.Time, achievedAt time.Time) float64 {
	if deadline == nil || !achievedAt.After(*deadline) {
		return 1.0
	}
	delta := achievedAt.Sub(*deadline).Seconds()
	penalty := math.Ceil(delta/secondsPerDay) * 0.15
	if penalty > 1.0 {
		penalty = 1.0
	}
	return 1.0 - penalty
}

// EarnedScore applies the late ratio to a base score, truncating toward zero.
func EarnedScore(baseScore int, ratio float64) int {
	return int(float64(baseScore) * ratio)
}
