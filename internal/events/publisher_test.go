package events

import "testing"

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix, room, event string
		want                string
	}{
		{"livepoll.events", "3f1c", "vote-updated", "livepoll.events.3f1c.vote-updated"},
		{"livepoll.events", "a.b", "session-update", "livepoll.events.a_b.session-update"},
		{"p", "room 1", "x>", "p.room_1.x_"},
	}

	for _, tt := range tests {
		if got := Subject(tt.prefix, tt.room, tt.event); got != tt.want {
			t.Errorf("Subject(%q, %q, %q) = %q, want %q", tt.prefix, tt.room, tt.event, got, tt.want)
		}
	}
}

func TestNATSPublisherTrimsPrefix(t *testing.T) {
	p := NewNATSPublisherConn(nil, "livepoll.events.")
	if got := p.Subject("s1", "question-closed"); got != "livepoll.events.s1.question-closed" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestNopPublisher(t *testing.T) {
	p := NewNopPublisher()
	p.Publish("room", "event", []byte(`{}`))
	p.Close()
}
