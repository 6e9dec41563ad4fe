package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code_arena/internal/domain/model"
)

// mockChallengeRepository implements repository.ChallengeRepository for testing
type mockChallengeRepository struct {
	createFunc          func(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	createSubtasksFunc  func(ctx context.Context, tx *sql.Tx, subtasks []model.Subtask) error
	findByIDFunc        func(ctx context.Context, id string) (*model.Challenge, error)
	listFunc            func(ctx context.Context, userID string, problemID, limit, offset int) ([]model.Challenge, error)
	listSubtasksFunc    func(ctx context.Context, tx *sql.Tx, challengeID string) ([]model.Subtask, error)
	lockStateFunc       func(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error)
	updateSubtaskFunc   func(ctx context.Context, tx *sql.Tx, subtask *model.Subtask) error
	updateStateFunc     func(ctx context.Context, tx *sql.Tx, id string, state model.JudgeState) error
	updateSummaryFunc   func(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	resetForRejudgeFunc func(ctx context.Context, tx *sql.Tx, id string) error
}

func (m *mockChallengeRepository) Create(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, tx, challenge)
	}
	return errors.New("not implemented")
}

func (m *mockChallengeRepository) CreateSubtasks(ctx context.Context, tx *sql.Tx, subtasks []model.Subtask) error {
	if m.createSubtasksFunc != nil {
		return m.createSubtasksFunc(ctx, tx, subtasks)
	}
	return errors.New("not implemented")
}

func (m *mockChallengeRepository) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockChallengeRepository) List(ctx context.Context, userID string, problemID, limit, offset int) ([]model.Challenge, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, problemID, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *mockChallengeRepository) ListSubtasks(ctx context.Context, tx *sql.Tx, challengeID string) ([]model.Subtask, error) {
	if m.listSubtasksFunc != nil {
		return m.listSubtasksFunc(ctx, tx, challengeID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockChallengeRepository) LockState(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error) {
	if m.lockStateFunc != nil {
		return m.lockStateFunc(ctx, tx, id)
	}
	return 0, errors.New("not implemented")
}

func (m *mockChallengeRepository) UpdateSubtask(ctx context.Context, tx *sql.Tx, subtask *model.Subtask) error {
	if m.updateSubtaskFunc != nil {
		return m.updateSubtaskFunc(ctx, tx, subtask)
	}
	return errors.New("not implemented")
}

func (m *mockChallengeRepository) UpdateState(ctx context.Context, tx *sql.Tx, id string, state model.JudgeState) error {
	if m.updateStateFunc != nil {
		return m.updateStateFunc(ctx, tx, id, state)
	}
	return errors.New("not implemented")
}

func (m *mockChallengeRepository) UpdateSummary(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error {
	if m.updateSummaryFunc != nil {
		return m.updateSummaryFunc(ctx, tx, challenge)
	}
	return errors.New("not implemented")
}

func (m *mockChallengeRepository) ResetForRejudge(ctx context.Context, tx *sql.Tx, id string) error {
	if m.resetForRejudgeFunc != nil {
		return m.resetForRejudgeFunc(ctx, tx, id)
	}
	return errors.New("not implemented")
}

func TestWebhookService_HandleJudgeResult(t *testing.T) {
	ctx := context.Background()

	t.Run("final subtask closes the challenge", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &mockChallengeRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.Challenge, error) {
			return &model.Challenge{ID: id, State: model.StateRunning}, nil
		}
		repo.lockStateFunc = func(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error) {
			require.NotNil(t, tx, "row lock must be taken inside the transaction")
			return model.StateRunning, nil
		}
		repo.updateSubtaskFunc = func(ctx context.Context, tx *sql.Tx, subtask *model.Subtask) error {
			require.NotNil(t, tx)
			return nil
		}
		repo.listSubtasksFunc = func(ctx context.Context, tx *sql.Tx, challengeID string) ([]model.Subtask, error) {
			// The roll-up must read inside the open transaction, where the
			// subtask write above is already visible.
			require.NotNil(t, tx, "subtask roll-up must read inside the transaction")
			return []model.Subtask{
				{ChallengeID: challengeID, Index: 0, State: model.StateDone, Result: model.ResultAC, RuntimeMs: 10},
				{ChallengeID: challengeID, Index: 1, State: model.StateDone, Result: model.ResultWA, RuntimeMs: 25},
			}, nil
		}
		var summary *model.Challenge
		repo.updateSummaryFunc = func(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error {
			summary = challenge
			return nil
		}

		mock.ExpectBegin()
		mock.ExpectCommit()

		service := NewWebhookService(repo, db)
		err = service.HandleJudgeResult(ctx, JudgeResultPayload{
			ChallengeID: "c1",
			Index:       1,
			State:       model.StateDone,
			Result:      model.ResultWA,
			RuntimeMs:   25,
		})
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, model.StateDone, summary.State)
		assert.Equal(t, model.ResultWA, summary.Result)
		assert.Equal(t, 35, summary.RuntimeMs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("done challenge ignores late webhooks", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &mockChallengeRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.Challenge, error) {
			return &model.Challenge{ID: id, State: model.StateDone, Result: model.ResultAC}, nil
		}
		repo.lockStateFunc = func(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error) {
			return model.StateDone, nil
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		service := NewWebhookService(repo, db)
		// updateSubtaskFunc is unset, so any write attempt would error out.
		err = service.HandleJudgeResult(ctx, JudgeResultPayload{ChallengeID: "c1", Index: 0, State: model.StateDone, Result: model.ResultWA})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("done state under the lock wins over a stale read", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &mockChallengeRepository{}
		// The unlocked read still sees the challenge running, but a
		// concurrent webhook closed it before our lock was granted.
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.Challenge, error) {
			return &model.Challenge{ID: id, State: model.StateRunning}, nil
		}
		repo.lockStateFunc = func(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error) {
			return model.StateDone, nil
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		service := NewWebhookService(repo, db)
		err = service.HandleJudgeResult(ctx, JudgeResultPayload{ChallengeID: "c1", Index: 1, State: model.StateDone, Result: model.ResultAC})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummarize(t *testing.T) {
	base := &model.Challenge{ID: "c1", State: model.StateRunning}

	t.Run("all subtasks accepted", func(t *testing.T) {
		subtasks := []model.Subtask{
			{Index: 0, State: model.StateDone, Result: model.ResultAC, RuntimeMs: 10, MemoryKb: 1024},
			{Index: 1, State: model.StateDone, Result: model.ResultAC, RuntimeMs: 20, MemoryKb: 2048},
		}
		summary := Summarize(base, subtasks)
		assert.Equal(t, model.StateDone, summary.State)
		assert.Equal(t, model.ResultAC, summary.Result)
		assert.Equal(t, 30, summary.RuntimeMs)
		assert.Equal(t, 3072, summary.MemoryKb)
	})

	t.Run("worst result wins", func(t *testing.T) {
		subtasks := []model.Subtask{
			{Index: 0, State: model.StateDone, Result: model.ResultAC},
			{Index: 1, State: model.StateDone, Result: model.ResultTLE},
			{Index: 2, State: model.StateDone, Result: model.ResultWA},
		}
		summary := Summarize(base, subtasks)
		assert.Equal(t, model.StateDone, summary.State)
		assert.Equal(t, model.ResultTLE, summary.Result)
	})

	t.Run("pending subtask holds the challenge back", func(t *testing.T) {
		subtasks := []model.Subtask{
			{Index: 0, State: model.StateDone, Result: model.ResultAC, RuntimeMs: 10},
			{Index: 1, State: model.StatePending},
		}
		summary := Summarize(base, subtasks)
		assert.Equal(t, model.StatePending, summary.State)
		// Summary fields stay untouched until every subtask is done.
		assert.Equal(t, base.Result, summary.Result)
		assert.Equal(t, base.RuntimeMs, summary.RuntimeMs)
	})

	t.Run("compile error verdict carries through", func(t *testing.T) {
		subtasks := []model.Subtask{
			{Index: 0, State: model.StateDone, Result: model.ResultCE, Verdict: "main.c:3: expected ';'"},
			{Index: 1, State: model.StateDone, Result: model.ResultCE, Verdict: "main.c:3: expected ';'"},
		}
		summary := Summarize(base, subtasks)
		assert.Equal(t, model.ResultCE, summary.Result)
		assert.Equal(t, "main.c:3: expected ';'", summary.Verdict)
	})

	t.Run("no subtasks leaves the challenge unchanged", func(t *testing.T) {
		summary := Summarize(base, nil)
		assert.Equal(t, base.State, summary.State)
		assert.Equal(t, base.Result, summary.Result)
	})
}
