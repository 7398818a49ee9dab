package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep the queue producer and consumer in sync.
const (
	TypeResumeExtract = "resume:extract"
)

// ResumeExtractPayload carries the minimum needed to run extraction.
type ResumeExtractPayload struct {
	ResumeID      string `json:"resume_id"`
	ObjectKey     string `json:"object_key"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeExtractTask builds an extraction task for an uploaded resume.
func NewResumeExtractTask(id, objectKey, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeExtractPayload{
		ResumeID:      id,
		ObjectKey:     objectKey,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExtract, payload), nil
}
