package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried by TransactionEvent.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// TransactionEvent is the lightweight message published after a successful
// write. It carries only identifiers; the consumer re-reads the row from the
// store, so a stale event can never overwrite newer data.
type TransactionEvent struct {
	Op            string    `json:"op"`
	OwnerID       string    `json:"owner_id"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(op, ownerID, transactionID string) *TransactionEvent {
	return &TransactionEvent{
		Op:            op,
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
