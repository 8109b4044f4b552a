// Package events publishes refresh signals over AMQP so UI shells and
// companion processes know which on-screen aggregates to reload after a
// mutation.
package events

import (
	"encoding/json"
	"time"
)

// RefreshMessage names the aggregates invalidated by one request's
// mutations. Consumers re-query the store; the message carries no data
// beyond the scope names and the affected month.
type RefreshMessage struct {
	Scopes    []string  `json:"scopes"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage builds a message for the given scopes and month.
func NewRefreshMessage(scopes []string, month, year int) *RefreshMessage {
	return &RefreshMessage{
		Scopes:    scopes,
		Month:     month,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
