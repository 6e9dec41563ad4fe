package service

import (
	"context"
	"database/sql"
	"log"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"
)

// WebhookService ingests per-subtask verdicts reported back by the external
// judge service.
type WebhookService struct {
	challengeRepo repository.ChallengeRepository
	db            *sql.DB
}

func NewWebhookService(challengeRepo repository.ChallengeRepository, db *sql.DB) *WebhookService {
	return &WebhookService{challengeRepo: challengeRepo, db: db}
}

// JudgeResultPayload is what the judge POSTs back for one subtask.
type JudgeResultPayload struct {
	ChallengeID string            `json:"challenge_id"`
	Index       int               `json:"index"`
	State       model.JudgeState  `json:"state"`
	Result      model.JudgeResult `json:"result"`
	RuntimeMs   int               `json:"runtime_ms"`
	MemoryKb    int               `json:"memory_kb"`
	Verdict     string            `json:"verdict"`
}

// HandleJudgeResult stores one subtask verdict and rolls the challenge state
// up from its subtasks: the challenge state is the minimum subtask state, so
// it becomes done only when the last subtask lands, at which point the
// summary (total runtime/memory, worst result, compile verdict) is fixed.
func (s *WebhookService) HandleJudgeResult(ctx context.Context, payload JudgeResultPayload) error {
	challenge, err := s.challengeRepo.FindByID(ctx, payload.ChallengeID)
	if err != nil {
		return common.Errorf("challenge %s not found: %w", payload.ChallengeID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction for webhook: %w", err)
	}
	defer tx.Rollback()

	// Row lock serializes concurrent webhooks for the same challenge; the
	// done-check has to happen under the lock or two final subtasks could
	// both pass it.
	state, err := s.challengeRepo.LockState(ctx, tx, payload.ChallengeID)
	if err != nil {
		return common.Errorf("failed to lock challenge %s: %w", payload.ChallengeID, err)
	}
	if state == model.StateDone {
		log.Printf("WARN: Challenge %s already done. Ignoring webhook for subtask %d.", challenge.ID, payload.Index)
		return nil // Idempotency
	}

	subtask := &model.Subtask{
		ChallengeID: payload.ChallengeID,
		Index:       payload.Index,
		State:       payload.State,
		Result:      payload.Result,
		RuntimeMs:   payload.RuntimeMs,
		MemoryKb:    payload.MemoryKb,
		Verdict:     payload.Verdict,
	}
	if err := s.challengeRepo.UpdateSubtask(ctx, tx, subtask); err != nil {
		return common.Errorf("failed to update subtask: %w", err)
	}

	subtasks, err := s.challengeRepo.ListSubtasks(ctx, tx, payload.ChallengeID)
	if err != nil {
		return common.Errorf("failed to list subtasks: %w", err)
	}

	summary := Summarize(challenge, subtasks)
	if err := s.challengeRepo.UpdateSummary(ctx, tx, summary); err != nil {
		return common.Errorf("failed to update challenge summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit webhook transaction: %w", err)
	}

	if summary.State == model.StateDone {
		log.Printf("Challenge %s done with result %s.", challenge.ID, summary.Result)
	}
	return nil
}

// Summarize rolls subtask outcomes up into the challenge: state is the
// minimum subtask state, result the maximum severity, runtime and memory are
// totals, and the compile-error verdict is carried through verbatim since all
// subtasks share the same compiler output.
func Summarize(challenge *model.Challenge, subtasks []model.Subtask) *model.Challenge {
	summary := *challenge
	if len(subtasks) == 0 {
		return &summary
	}

	state := model.StateDone
	result := model.ResultNone
	totalRuntime := 0
	totalMemory := 0
	verdict := ""

	for _, subtask := range subtasks {
		if subtask.State < state {
			state = subtask.State
		}
		if subtask.Result > result {
			result = subtask.Result
		}
		totalRuntime += subtask.RuntimeMs
		totalMemory += subtask.MemoryKb
		if subtask.Result == model.ResultCE && verdict == "" {
			verdict = subtask.Verdict
		}
	}

	summary.State = state
	if state == model.StateDone {
		summary.Result = result
		summary.RuntimeMs = totalRuntime
		summary.MemoryKb = totalMemory
		summary.Verdict = verdict
	}
	return &summary
}
