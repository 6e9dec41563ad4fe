package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code_arena/internal/domain/model"
)

func challengeListColumns() []string {
	return []string{"id", "user_id", "problem_id", "revision", "state", "result",
		"runtime_ms", "memory_kb", "submitted_at", "username", "name"}
}

func TestPgChallengeRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPgChallengeRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("NoFilters", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, c.user_id").
			WithArgs(50, 0).
			WillReturnRows(sqlmock.NewRows(challengeListColumns()).
				AddRow("c1", "u1", 7, "rev-1", int(model.StateDone), int(model.ResultAC), 30, 4096, now, "alice", "Two Sum"))

		challenges, err := repo.List(ctx, "", 0, 50, 0)
		require.NoError(t, err)
		require.Len(t, challenges, 1)
		assert.Equal(t, model.StateDone, challenges[0].State)
		assert.Equal(t, "alice", *challenges[0].Username)
	})

	t.Run("UserAndProblemFilters", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, c.user_id").
			WithArgs("u1", 7, 20, 20).
			WillReturnRows(sqlmock.NewRows(challengeListColumns()))

		challenges, err := repo.List(ctx, "u1", 7, 20, 20)
		require.NoError(t, err)
		assert.Empty(t, challenges)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgChallengeRepository_ResetForRejudge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPgChallengeRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE challenges SET state").
		WithArgs(model.StatePending, model.ResultNone, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE subtasks SET state").
		WithArgs(model.StatePending, model.ResultNone, "c1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ResetForRejudge(ctx, nil, "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
