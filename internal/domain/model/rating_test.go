package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestScore(t *testing.T) {
	assert.Equal(t, 500, TestScore(1000, 50))
	assert.Equal(t, 1000, TestScore(1000, 100))
	assert.Equal(t, 0, TestScore(1000, 0))
	// Integer division truncates.
	assert.Equal(t, 333, TestScore(1000, 33))
}

func TestAcceptanceScore(t *testing.T) {
	t.Run("first solve is worth exactly four times the weight score", func(t *testing.T) {
		// 2^(28/14) = 4
		assert.Equal(t, 4000, AcceptanceScore(1000, 1))
	})

	t.Run("strictly decreasing in solver count", func(t *testing.T) {
		prev := AcceptanceScore(1000, 0)
		for count := 1; count <= 200; count++ {
			cur := AcceptanceScore(1000, count)
			require.LessOrEqual(t, cur, prev, "count %d", count)
			prev = cur
		}
	})

	t.Run("approaches the weight score for popular tests", func(t *testing.T) {
		score := AcceptanceScore(1000, 100000)
		assert.GreaterOrEqual(t, score, 1000)
		assert.Less(t, score, 1005)
	})

	t.Run("zero weight score stays zero", func(t *testing.T) {
		assert.Equal(t, 0, AcceptanceScore(0, 5))
	})
}

func TestLateRatio(t *testing.T) {
	deadline := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no deadline means full credit", func(t *testing.T) {
		assert.Equal(t, 1.0, LateRatio(nil, deadline.Add(365*24*time.Hour)))
	})

	t.Run("exactly at the deadline is on time", func(t *testing.T) {
		assert.Equal(t, 1.0, LateRatio(&deadline, deadline))
	})

	t.Run("before the deadline is on time", func(t *testing.T) {
		assert.Equal(t, 1.0, LateRatio(&deadline, deadline.Add(-time.Hour)))
	})

	t.Run("one second late counts as one started day", func(t *testing.T) {
		assert.InDelta(t, 0.85, LateRatio(&deadline, deadline.Add(time.Second)), 1e-9)
	})

	t.Run("exactly one day late still counts as one day", func(t *testing.T) {
		assert.InDelta(t, 0.85, LateRatio(&deadline, deadline.Add(24*time.Hour)), 1e-9)
	})

	t.Run("one day and a second late starts the second day", func(t *testing.T) {
		assert.InDelta(t, 0.70, LateRatio(&deadline, deadline.Add(24*time.Hour+time.Second)), 1e-9)
	})

	t.Run("six days late keeps a sliver of credit", func(t *testing.T) {
		assert.InDelta(t, 0.10, LateRatio(&deadline, deadline.Add(6*24*time.Hour)), 1e-9)
	})

	t.Run("a week late and beyond earns nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, LateRatio(&deadline, deadline.Add(7*24*time.Hour)))
		assert.Equal(t, 0.0, LateRatio(&deadline, deadline.Add(30*24*time.Hour)))
	})
}

func TestEarnedScore(t *testing.T) {
	assert.Equal(t, 1000, EarnedScore(1000, 1.0))
	assert.Equal(t, 850, EarnedScore(1000, 0.85))
	assert.Equal(t, 0, EarnedScore(1000, 0.0))
	// Truncates toward zero.
	assert.Equal(t, 84, EarnedScore(99, 0.85))
}

func TestCategoryRated(t *testing.T) {
	assert.False(t, CategoryUniverse.Rated())
	assert.True(t, CategoryClang.Rated())
	assert.True(t, CategoryPylang.Rated())
	assert.NotContains(t, RatedCategories(), CategoryUniverse)
}
