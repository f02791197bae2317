package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// DatasetImportedMessage announces that a new dataset snapshot is stored.
// Consumers load the records by ImportID from the shared database.
type DatasetImportedMessage struct {
	ImportID  string    `json:"import_id"`
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	MinYear   int       `json:"min_year"`
	MaxYear   int       `json:"max_year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetImportedMessage creates a message stamped with the current time.
func NewDatasetImportedMessage(importID, source string, records, minYear, maxYear int) *DatasetImportedMessage {
	return &DatasetImportedMessage{
		ImportID:  importID,
		Source:    source,
		Records:   records,
		MinYear:   minYear,
		MaxYear:   maxYear,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetImportedMessageFromJSON parses and checks a message body.
func DatasetImportedMessageFromJSON(data []byte) (*DatasetImportedMessage, error) {
	var msg DatasetImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ImportID == "" {
		return nil, errors.New("message has no import_id")
	}
	return &msg, nil
}
