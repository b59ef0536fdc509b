package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportRequest asks the worker to load a dataset from Source/Location and
// store it as a new snapshot. An empty Location means the configured default.
type ImportRequest struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Location    string    `json:"location,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewImportRequest(source, location string) *ImportRequest {
	return &ImportRequest{
		ID:          uuid.NewString(),
		Source:      strings.TrimSpace(source),
		Location:    strings.TrimSpace(location),
		RequestedAt: time.Now().UTC(),
	}
}

// Validate checks the fields every consumer relies on.
func (m *ImportRequest) Validate() error {
	if m.ID == "" {
		return errors.New("import request has no id")
	}
	if m.Source == "" {
		return errors.New("import request has no source")
	}
	return nil
}

func (m *ImportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportRequestFromJSON decodes and validates a message body.
func ImportRequestFromJSON(data []byte) (*ImportRequest, error) {
	var msg ImportRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
