package amqp

import (
	"testing"
	"time"
)

func TestTripCompletedMessageRoundtrip(t *testing.T) {
	msg := NewTripCompletedMessage("AZAGRA", "MADRID", 320, "JAVIER", "2026-08-15")
	if msg.Timestamp.IsZero() {
		t.Error("constructor must stamp the message")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := TripCompletedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.Origen != "AZAGRA" || decoded.Destino != "MADRID" || decoded.Km != 320 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Fecha != "2026-08-15" {
		t.Errorf("fecha = %s, want 2026-08-15", decoded.Fecha)
	}
	if !decoded.Timestamp.Equal(msg.Timestamp.Truncate(time.Nanosecond)) {
		t.Errorf("timestamp = %v, want %v", decoded.Timestamp, msg.Timestamp)
	}
}

func TestTripCompletedMessageFromJSONInvalid(t *testing.T) {
	if _, err := TripCompletedMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
