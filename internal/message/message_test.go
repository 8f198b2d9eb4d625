package message

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"plain", `"alice"`, "alice", nil},
		{"trimmed", `"  bob \t"`, "bob", nil},
		{"empty", `""`, "", ErrEmptyName},
		{"whitespace", `"   "`, "", ErrEmptyName},
		{"number", `42`, "", ErrNotString},
		{"null", `null`, "", ErrNotString},
		{"object", `{"name":"x"}`, "", ErrNotString},
		{"missing", ``, "", ErrNotString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(json.RawMessage(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseName(%s) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseName(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseText(t *testing.T) {
	if got, err := ParseText(json.RawMessage(`" hi "`), 0); err != nil || got != "hi" {
		t.Fatalf("ParseText = %q, %v; want \"hi\", nil", got, err)
	}
	if _, err := ParseText(json.RawMessage(`"\n "`), 0); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := ParseText(json.RawMessage(`true`), 0); !errors.Is(err, ErrNotString) {
		t.Fatalf("expected ErrNotString, got %v", err)
	}

	long, _ := json.Marshal(strings.Repeat("é", 11))
	if _, err := ParseText(long, 10); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("expected ErrTextTooLong, got %v", err)
	}
	exact, _ := json.Marshal(strings.Repeat("é", 10))
	if _, err := ParseText(exact, 10); err != nil {
		t.Fatalf("10 runes should fit a limit of 10: %v", err)
	}
}

func TestNewStampsUTC(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	at := time.Date(2024, 5, 1, 12, 30, 45, 123456789, loc)
	msg := New("alice", "hi", at)

	if msg.Timestamp != "2024-05-01T09:30:45.123Z" {
		t.Fatalf("unexpected timestamp %q", msg.Timestamp)
	}
}

func TestTimestampsSortLexically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := FormatTimestamp(base.Add(900 * time.Millisecond))
	b := FormatTimestamp(base.Add(1 * time.Second))
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
}

func TestEncodeDecode(t *testing.T) {
	frame, err := Encode(EventSystem, "alice joined the chat")
	if err != nil {
		t.Fatal(err)
	}
	if string(frame) != `{"event":"system","data":"alice joined the chat"}` {
		t.Fatalf("unexpected frame %s", frame)
	}

	env, err := Decode([]byte(`{"event":"join","data":"bob"}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.Event != EventJoin || string(env.Data) != `"bob"` {
		t.Fatalf("unexpected envelope %+v", env)
	}

	if _, err := Decode([]byte(`{"data":"x"}`)); !errors.Is(err, ErrMissingEvent) {
		t.Fatalf("expected ErrMissingEvent, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReason(t *testing.T) {
	if Reason(ErrEmptyText) != "Message cannot be empty" {
		t.Fatalf("unexpected reason %q", Reason(ErrEmptyText))
	}
	if Reason(errors.New("boom")) != "Something went wrong" {
		t.Fatal("unknown errors should map to the generic reason")
	}
}

func TestFrameLimit(t *testing.T) {
	tests := []struct {
		maxLen int
		want   int64
	}{
		{1000, 64 * 1024},
		{20000, 20000*6 + 1024},
		{0, MaxTextLength*6 + 1024},
		{MaxTextLength * 2, MaxTextLength*6 + 1024},
	}
	for _, tt := range tests {
		if got := FrameLimit(tt.maxLen); got != tt.want {
			t.Errorf("FrameLimit(%d) = %d, want %d", tt.maxLen, got, tt.want)
		}
	}
}
