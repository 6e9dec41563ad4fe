package model

import "time"

// JudgeState is the lifecycle state of a challenge or of a single subtask.
// A challenge's state is the minimum over its subtask states, so it only
// reaches done once every subtask is done.
type JudgeState int

const (
	StatePending JudgeState = 0
	StateRunning JudgeState = 1
	StateDone    JudgeState = 2
)

func (s JudgeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// JudgeResult is the outcome of one subtask. Values are ordered by severity so
// a challenge's overall result is the maximum over its subtask results.
type JudgeResult int

const (
	ResultNone JudgeResult = 0
	ResultAC   JudgeResult = 1
	ResultWA   JudgeResult = 2
	ResultRE   JudgeResult = 3
	ResultTLE  JudgeResult = 4
	ResultMLE  JudgeResult = 5
	ResultCE   JudgeResult = 6
	ResultErr  JudgeResult = 7
)

func (r JudgeResult) String() string {
	switch r {
	case ResultNone:
		return "NONE"
	case ResultAC:
		return "AC"
	case ResultWA:
		return "WA"
	case ResultRE:
		return "RE"
	case ResultTLE:
		return "TLE"
	case ResultMLE:
		return "MLE"
	case ResultCE:
		return "CE"
	case ResultErr:
		return "ERR"
	}
	return "unknown"
}

// Challenge is one attempt by one user against one problem.
type Challenge struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	ProblemID   int         `json:"problem_id"`
	Revision    string      `json:"revision"`
	Code        string      `json:"code,omitempty"`
	State       JudgeState  `json:"state"`
	Result      JudgeResult `json:"result"`
	RuntimeMs   int         `json:"runtime_ms"`
	MemoryKb    int         `json:"memory_kb"`
	Verdict     string      `json:"verdict,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Subtasks    []Subtask   `json:"subtasks,omitempty"`

	Username    *string `json:"username,omitempty"`     // For display
	ProblemName *string `json:"problem_name,omitempty"` // For display
}

// Subtask is the judged outcome of one test case of a challenge.
type Subtask struct {
	ChallengeID string      `json:"challenge_id"`
	Index       int         `json:"index"`
	State       JudgeState  `json:"state"`
	Result      JudgeResult `json:"result"`
	RuntimeMs   int         `json:"runtime_ms"`
	MemoryKb    int         `json:"memory_kb"`
	Verdict     string      `json:"verdict,omitempty"`
}
