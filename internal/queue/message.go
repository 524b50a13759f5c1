package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is written into every message this build produces.
const MessageVersion = 1

// Message asks a worker to run one PENDING analysis.
type Message struct {
	AnalysisID string `json:"analysisId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a message for analysisID.
func NewMessage(analysisID, requestID string, now time.Time) Message {
	return Message{
		AnalysisID: analysisID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
