package kafka

import (
	"encoding/json"
	"testing"

	"github.com/muelle-planner/platform/pkg/common/models"
)

func TestEventRoundTrip(t *testing.T) {
	event := NewEvent(models.EventRecordAdded, "planner", map[string]interface{}{"record_id": 3})
	event.Payload = json.RawMessage(`{"records":[]}`)
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Fatalf("event not stamped: %+v", event)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != event.ID || got.Type != models.EventRecordAdded || string(got.Payload) != `{"records":[]}` {
		t.Fatalf("unexpected event %+v", got)
	}
	if _, err := DecodeEvent([]byte("nope")); err == nil {
		t.Fatal("expected decode error")
	}
}
