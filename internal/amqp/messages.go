package amqp

import (
	"encoding/json"
	"time"
)

// TripCompletedMessage is the trip-store feed event: one completed transport
// movement, ready to be folded into the aggregates.
type TripCompletedMessage struct {
	Origen    string    `json:"origen"`
	Destino   string    `json:"destino"`
	Km        int64     `json:"km"`
	Conductor string    `json:"conductor"`
	Fecha     string    `json:"fecha"` // ISO calendar date
	Timestamp time.Time `json:"timestamp"`
}

// NewTripCompletedMessage builds a feed event stamped now.
func NewTripCompletedMessage(origen, destino string, km int64, conductor, fecha string) *TripCompletedMessage {
	return &TripCompletedMessage{
		Origen:    origen,
		Destino:   destino,
		Km:        km,
		Conductor: conductor,
		Fecha:     fecha,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TripCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TripCompletedMessageFromJSON creates a message from JSON bytes
func TripCompletedMessageFromJSON(data []byte) (*TripCompletedMessage, error) {
	var msg TripCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
