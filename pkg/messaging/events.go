package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Stock events
	EventMovementRecorded = "stock.movement.recorded"
	EventStockAlert       = "stock.alert"
)

// Exchange names
const (
	ExchangeStockEvents = "stock.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock Events

// MovementRecordedEvent is published after every ledger append
type MovementRecordedEvent struct {
	MovementID  string `json:"movement_id"`
	ItemID      string `json:"item_id"`
	BatchID     string `json:"batch_id,omitempty"`
	Change      int    `json:"change"`
	Reason      string `json:"reason"`
	ReferenceID string `json:"reference_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	OnHand      int    `json:"on_hand"`
	Allocated   int    `json:"allocated"`
}

// StockAlertEvent is published when an item crosses an alert threshold
type StockAlertEvent struct {
	AlertType    string `json:"alert_type"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	OnHand       int    `json:"on_hand"`
	ReorderLevel int    `json:"reorder_level"`
	Message      string `json:"message"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
