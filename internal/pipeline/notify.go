package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusNotifyMessage is the wire format pushed over Redis pub/sub and
// forwarded verbatim to WebSocket clients.
type StatusNotifyMessage struct {
	ResumeID      string   `json:"resume_id"`
	Status        string   `json:"status"`
	CorrelationID string   `json:"correlation_id,omitempty"`
	FitScore      *float64 `json:"fit_score,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// NotifyChannel names the per-resume status channel.
func NotifyChannel(resumeID string) string {
	return "resume_notify:" + resumeID
}

func publishStatus(ctx context.Context, client *redis.Client, msg StatusNotifyMessage) error {
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}
	if err := client.Publish(ctx, NotifyChannel(msg.ResumeID), payload).Err(); err != nil {
		return fmt.Errorf("publish notify message: %w", err)
	}
	return nil
}
