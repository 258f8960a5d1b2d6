package pipeline

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"draftdesk/internal/infra/credentials"
	"draftdesk/internal/providers/anthropic"
)

func newTestGenerator(t *testing.T, transport *scriptTransport, maxAttempts int) (*Generator, *[]time.Duration) {
	t.Helper()
	pool, err := credentials.NewPool([]string{"key-a", "key-b", "key-c"})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	factory, err := anthropic.NewFactory(anthropic.FactoryOptions{
		Pool:       pool,
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	gen := NewGenerator(factory, maxAttempts, zerolog.Nop())
	var slept []time.Duration
	gen.sleep = func(d time.Duration) { slept = append(slept, d) }
	return gen, &slept
}

func TestGenerateSuccessFirstTry(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{okReply("완성 원고")}}
	gen, slept := newTestGenerator(t, transport, 10)

	got, err := gen.Generate(context.Background(), "프롬프트")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "완성 원고" {
		t.Fatalf("content = %q", got)
	}
	if len(*slept) != 0 {
		t.Fatalf("slept %v, want no backoff on success", *slept)
	}
}

func TestGenerateCreditErrorSwapsKeyWithoutBackoff(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		errorReply(http.StatusBadRequest, "Your credit balance is too low"),
		okReply("원고"),
	}}
	gen, slept := newTestGenerator(t, transport, 10)

	if _, err := gen.Generate(context.Background(), "프롬프트"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(transport.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(transport.calls))
	}
	if transport.calls[0].key == transport.calls[1].key {
		t.Fatal("credit error must rotate to a different key")
	}
	if len(*slept) != 0 {
		t.Fatalf("slept %v, want immediate retry on credential errors", *slept)
	}
}

func TestGenerateTransientErrorBacksOffLinearly(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		errorReply(http.StatusInternalServerError, "overloaded"),
		errorReply(http.StatusInternalServerError, "overloaded"),
		okReply("원고"),
	}}
	gen, slept := newTestGenerator(t, transport, 10)

	if _, err := gen.Generate(context.Background(), "프롬프트"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Fatalf("slept %v, want %v", *slept, want)
		}
	}
}

func TestGenerateExhaustionWrapsLastError(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		errorReply(http.StatusInternalServerError, "overloaded"),
	}}
	gen, _ := newTestGenerator(t, transport, 3)

	_, err := gen.Generate(context.Background(), "프롬프트")
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if len(transport.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(transport.calls))
	}
	if !strings.Contains(err.Error(), "after 3 attempts") || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("error %q should report attempts and wrap the last cause", err)
	}
}
