package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeTrialCleanup = "license:trial:cleanup"
)

type TrialCleanupPayload struct{}

func NewTrialCleanupTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(TrialCleanupPayload{})
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Hour)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeTrialCleanup, payloadBytes, allOpts...), nil
}
