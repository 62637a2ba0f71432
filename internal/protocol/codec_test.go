package protocol

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/logia/logia/internal/errors"
)

func testEvent() DisruptionEvent {
	return DisruptionEvent{
		ID:        "ev-1",
		Type:      DisruptionBlockedRoute,
		Reference: "order-77",
		Severity:  3,
		Context:   map[string]string{"road": "I-90 eastbound"},
		OccurredAt: time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	deadline := time.Date(2026, 8, 20, 14, 30, 5, 0, time.UTC)

	messages := []Message{
		Register{Descriptor: AgentDescriptor{
			Name:         "rerouting",
			Capabilities: []DisruptionType{DisruptionBlockedRoute, DisruptionMissedWindow},
			Weight:       1.0,
		}},
		Registered{RegistrationID: "reg-42"},
		Heartbeat{RegistrationID: "reg-42"},
		Request{CorrelationID: "corr-1", Event: testEvent(), Deadline: deadline},
		Response{
			CorrelationID:  "corr-1",
			Recommendation: Recommendation{Kind: RecommendReroute, NewRoute: "via SR-520"},
			Confidence:     0.8,
			Evidence:       map[string]string{"eta_delta": "+12m"},
		},
		Response{
			CorrelationID:  "corr-2",
			Recommendation: Recommendation{Kind: RecommendNoAction},
			Confidence:     0.4,
		},
		Response{
			CorrelationID:  "corr-3",
			Recommendation: Recommendation{Kind: RecommendCancel, Reason: "cargo spoiled beyond salvage"},
			Confidence:     0.95,
		},
	}

	for _, m := range messages {
		t.Run(string(m.Type()), func(t *testing.T) {
			data, err := Encode(m)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(m, decoded) {
				t.Errorf("round trip mismatch:\n sent: %#v\n got:  %#v", m, decoded)
			}
		})
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	frame := fmt.Sprintf(`{"version": %d, "type": "heartbeat", "payload": {"registration_id": "r"}}`, Version+1)
	_, err := Decode([]byte(frame))
	if !errors.Is(err, errors.ErrUnsupportedVersion) {
		t.Errorf("Decode() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestDecode_UnknownMessageType(t *testing.T) {
	frame := `{"version": 1, "type": "subscribe", "payload": {}}`
	_, err := Decode([]byte(frame))
	if !errors.Is(err, errors.ErrUnknownMessageType) {
		t.Errorf("Decode() error = %v, want ErrUnknownMessageType", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `{{{`},
		{"missing version", `{"type": "heartbeat", "payload": {"registration_id": "r"}}`},
		{"missing type", `{"version": 1, "payload": {}}`},
		{"missing payload", `{"version": 1, "type": "heartbeat"}`},
		{"mistyped field", `{"version": 1, "type": "response", "payload": {"correlation_id": 7}}`},
		{"heartbeat without registration", `{"version": 1, "type": "heartbeat", "payload": {}}`},
		{"request without correlation", `{"version": 1, "type": "request", "payload": {"event": {"id": "e", "type": "other", "reference": "o", "severity": 1}, "deadline": "2026-08-20T14:30:05Z"}}`},
		{"response confidence out of range", `{"version": 1, "type": "response", "payload": {"correlation_id": "c", "confidence": 1.5, "recommendation": {"kind": "no-action"}}}`},
		{"reroute without route", `{"version": 1, "type": "response", "payload": {"correlation_id": "c", "confidence": 0.5, "recommendation": {"kind": "reroute"}}}`},
		{"cancel without reason", `{"version": 1, "type": "response", "payload": {"correlation_id": "c", "confidence": 0.5, "recommendation": {"kind": "cancel"}}}`},
		{"unknown recommendation kind", `{"version": 1, "type": "response", "payload": {"correlation_id": "c", "confidence": 0.5, "recommendation": {"kind": "retry"}}}`},
		{"register without capabilities", `{"version": 1, "type": "register", "payload": {"descriptor": {"name": "a", "weight": 1, "capabilities": []}}}`},
		{"register with zero weight", `{"version": 1, "type": "register", "payload": {"descriptor": {"name": "a", "weight": 0, "capabilities": ["other"]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			if !errors.Is(err, errors.ErrMalformedMessage) {
				t.Errorf("Decode() error = %v, want ErrMalformedMessage", err)
			}
		})
	}
}

func TestDecode_OlderEqualVersionAccepted(t *testing.T) {
	frame := `{"version": 1, "type": "heartbeat", "payload": {"registration_id": "reg-1"}}`
	m, err := Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	hb, ok := m.(Heartbeat)
	if !ok {
		t.Fatalf("decoded type = %T, want Heartbeat", m)
	}
	if hb.RegistrationID != "reg-1" {
		t.Errorf("RegistrationID = %q", hb.RegistrationID)
	}
}

func TestDisruptionEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DisruptionEvent)
		wantErr bool
	}{
		{"valid", func(*DisruptionEvent) {}, false},
		{"missing id", func(e *DisruptionEvent) { e.ID = "" }, true},
		{"unknown type", func(e *DisruptionEvent) { e.Type = "meteor-strike" }, true},
		{"missing reference", func(e *DisruptionEvent) { e.Reference = "" }, true},
		{"zero severity", func(e *DisruptionEvent) { e.Severity = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := testEvent()
			tt.mutate(&ev)
			err := ev.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errors.ErrInvalidEvent) {
				t.Errorf("Validate() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestAgentDescriptor_CanHandle(t *testing.T) {
	d := AgentDescriptor{
		Name:         "safety",
		Capabilities: []DisruptionType{DisruptionSpoiledCargo},
		Weight:       0.9,
	}
	if !d.CanHandle(DisruptionSpoiledCargo) {
		t.Error("CanHandle(spoiled-cargo) = false, want true")
	}
	if d.CanHandle(DisruptionBlockedRoute) {
		t.Error("CanHandle(blocked-route) = true, want false")
	}
}
