package sse

import (
	"bufio"
	"bytes"
	"testing"
)

func TestSendFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := Send(w, Event{Event: "progress", Data: map[string]int{"progress": 42}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := "event: progress\ndata: {\"progress\":42}\n\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestSendStringDataUnencoded(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := Send(w, Event{Data: "done"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if buf.String() != "data: done\n\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSendWithID(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := Send(w, Event{ID: "7", Event: "complete", Data: "ok"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if buf.String() != "id: 7\nevent: complete\ndata: ok\n\n" {
		t.Errorf("output = %q", buf.String())
	}
}
