package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"pointsledger/internal/core"
)

// JournalMessageVersion is bumped on incompatible payload changes.
const JournalMessageVersion = 1

// JournalMessage carries one ledger journal entry to the journal worker.
type JournalMessage struct {
	Version     int               `json:"version"`
	Entry       core.JournalEntry `json:"entry"`
	PublishedAt time.Time         `json:"published_at"`
}

func NewJournalMessage(e core.JournalEntry) *JournalMessage {
	return &JournalMessage{
		Version:     JournalMessageVersion,
		Entry:       e,
		PublishedAt: time.Now(),
	}
}

func (m *JournalMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JournalMessageFromJSON decodes and sanity-checks a message body.
func JournalMessageFromJSON(data []byte) (*JournalMessage, error) {
	var msg JournalMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != JournalMessageVersion {
		return nil, fmt.Errorf("unsupported journal message version %d", msg.Version)
	}
	if msg.Entry.ID == "" {
		return nil, fmt.Errorf("journal message without entry id")
	}
	return &msg, nil
}
