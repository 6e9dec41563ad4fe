package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"
	"code_arena/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	problemRepo   repository.ProblemRepository
	rdb           *redis.Client
	db            *sql.DB
}

func NewChallengeService(challengeRepo repository.ChallengeRepository, problemRepo repository.ProblemRepository, rdb *redis.Client, db *sql.DB) *ChallengeService {
	return &ChallengeService{challengeRepo: challengeRepo, problemRepo: problemRepo, rdb: rdb, db: db}
}

type CreateChallengeRequest struct {
	ProblemID int    `json:"problem_id"`
	Code      string `json:"code"`
}

// CreateChallenge records a new attempt with one pending subtask per declared
// test and hands it to the judge queue. The challenge row and its subtasks
// commit together; the queue push happens inside the transaction so a redis
// failure rolls the attempt back.
func (s *ChallengeService) CreateChallenge(ctx context.Context, userID string, req CreateChallengeRequest) (*model.Challenge, error) {
	if req.Code == "" {
		return nil, common.Errorf("empty submission: %w", common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindByID(ctx, req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if len(problem.Tests) == 0 {
		return nil, common.Errorf("problem %d has no tests: %w", problem.ID, common.ErrConflict)
	}

	challenge := &model.Challenge{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProblemID:   problem.ID,
		Revision:    problem.Revision,
		Code:        req.Code,
		State:       model.StatePending,
		SubmittedAt: time.Now(),
	}

	subtasks := make([]model.Subtask, len(problem.Tests))
	for i := range problem.Tests {
		subtasks[i] = model.Subtask{ChallengeID: challenge.ID, Index: i, State: model.StatePending}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.challengeRepo.Create(ctx, tx, challenge); err != nil {
		return nil, common.Errorf("failed to create challenge: %w", err)
	}
	if err := s.challengeRepo.CreateSubtasks(ctx, tx, subtasks); err != nil {
		return nil, common.Errorf("failed to create subtasks: %w", err)
	}

	if err := s.rdb.LPush(ctx, config.AppConfig.JudgeQueueName, challenge.ID).Err(); err != nil {
		return nil, common.Errorf("failed to push challenge to judge queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	challenge.Subtasks = subtasks
	log.Printf("Challenge %s for problem %d enqueued.", challenge.ID, problem.ID)
	return challenge, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subtasks, err := s.challengeRepo.ListSubtasks(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	challenge.Subtasks = subtasks
	return challenge, nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context, userID string, problemID, page, pageSize int) ([]model.Challenge, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	return s.challengeRepo.List(ctx, userID, problemID, pageSize, (page-1)*pageSize)
}

// Rejudge resets a done challenge to pending and enqueues it again. Useful
// after a judge misbehavior; the rating tables catch up on the next trigger.
func (s *ChallengeService) Rejudge(ctx context.Context, id string) error {
	if _, err := s.challengeRepo.FindByID(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.challengeRepo.ResetForRejudge(ctx, tx, id); err != nil {
		return common.Errorf("failed to reset challenge: %w", err)
	}
	if err := s.rdb.LPush(ctx, config.AppConfig.JudgeQueueName, id).Err(); err != nil {
		return common.Errorf("failed to re-enqueue challenge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Challenge %s queued for rejudge.", id)
	return nil
}
