package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"
	"code_arena/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// JudgeWorker pops challenge IDs off the Redis queue and forwards them to the
// external judge service. The judge reports per-subtask results back through
// the webhook endpoint.
type JudgeWorker struct {
	rdb           *redis.Client
	challengeRepo repository.ChallengeRepository
	problemRepo   repository.ProblemRepository
	httpClient    *http.Client
}

func NewJudgeWorker(rdb *redis.Client, chalRepo repository.ChallengeRepository, probRepo repository.ProblemRepository) *JudgeWorker {
	return &JudgeWorker{
		rdb:           rdb,
		challengeRepo: chalRepo,
		problemRepo:   probRepo,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// JudgeRequest is the format sent to the external judge service.
type JudgeRequest struct {
	ChallengeID   string          `json:"challenge_id"`
	Code          string          `json:"code"`
	TimeLimitMs   int             `json:"time_limit_ms"`
	MemoryLimitKb int             `json:"memory_limit_kb"`
	Tests         []JudgeTestCase `json:"tests"`
	WebhookURL    string          `json:"webhook_url"`
}

type JudgeTestCase struct {
	Index          int    `json:"index"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

func (w *JudgeWorker) Start(ctx context.Context) {
	log.Println("Judge worker started, listening to queue:", config.AppConfig.JudgeQueueName)
	for {
		select {
		case <-ctx.Done():
			log.Println("Judge worker stopping...")
			return
		default:
			res, err := w.rdb.BRPop(ctx, 0*time.Second, config.AppConfig.JudgeQueueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					log.Printf("Worker BRPop exiting or timed out: %v", err)
					time.Sleep(1 * time.Second)
					continue
				}
				log.Printf("ERROR: Failed to BRPop from Redis queue '%s': %v", config.AppConfig.JudgeQueueName, err)
				time.Sleep(5 * time.Second)
				continue
			}

			// res is an array: [queueName, value]
			if len(res) < 2 || res[1] == "" {
				log.Println("WARN: BRPop returned empty challenge ID.")
				continue
			}
			challengeID := res[1]
			log.Printf("Worker picked up challenge ID: %s", challengeID)

			w.processChallenge(ctx, challengeID)
		}
	}
}

func (w *JudgeWorker) processChallenge(ctx context.Context, challengeID string) {
	challenge, err := w.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		log.Printf("ERROR: Failed to load challenge %s: %v", challengeID, err)
		return
	}
	if challenge.State == model.StateDone {
		log.Printf("INFO: Challenge %s already judged, skipping.", challengeID)
		return
	}

	problem, err := w.problemRepo.FindByID(ctx, challenge.ProblemID)
	if err != nil {
		log.Printf("ERROR: Failed to load problem %d for challenge %s: %v", challenge.ProblemID, challengeID, err)
		return
	}

	req := JudgeRequest{
		ChallengeID:   challenge.ID,
		Code:          challenge.Code,
		TimeLimitMs:   problem.TimeLimitMs,
		MemoryLimitKb: problem.MemoryLimitKb,
		WebhookURL:    config.AppConfig.JudgeWebhookURL,
	}
	for i, tc := range problem.Tests {
		req.Tests = append(req.Tests, JudgeTestCase{
			Index:          i,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		})
	}

	if err := w.challengeRepo.UpdateState(ctx, nil, challenge.ID, model.StateRunning); err != nil {
		log.Printf("ERROR: Failed to mark challenge %s running: %v", challenge.ID, err)
	}

	if err := w.sendToJudge(ctx, req); err != nil {
		log.Printf("ERROR: Failed to send challenge %s to judge: %v", challenge.ID, err)
		// Re-queue so a later pass can retry once the judge is reachable.
		w.requeue(ctx, challenge.ID)
		return
	}
	log.Printf("INFO: Challenge %s sent to judge.", challenge.ID)
}

func (w *JudgeWorker) sendToJudge(ctx context.Context, req JudgeRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, config.AppConfig.JudgeURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("judge returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *JudgeWorker) requeue(ctx context.Context, challengeID string) {
	if err := w.rdb.LPush(ctx, config.AppConfig.JudgeQueueName, challengeID).Err(); err != nil {
		log.Printf("ERROR: Failed to re-queue challenge %s: %v", challengeID, err)
	}
}
