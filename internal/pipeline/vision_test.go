package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"draftdesk/internal/infra/credentials"
	"draftdesk/internal/providers/anthropic"
)

type scriptedReply struct {
	status int
	body   any
}

type visionCall struct {
	key    string
	images int
}

// scriptTransport serves canned replies in order and records what each
// request carried.
type scriptTransport struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   []visionCall
}

func (s *scriptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload struct {
		Messages []struct {
			Content []struct {
				Type string `json:"type"`
			} `json:"content"`
		} `json:"messages"`
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	images := 0
	for _, msg := range payload.Messages {
		for _, block := range msg.Content {
			if block.Type == "image" {
				images++
			}
		}
	}
	s.calls = append(s.calls, visionCall{key: req.Header.Get("X-Api-Key"), images: images})

	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	body, _ := json.Marshal(reply.body)
	return &http.Response{
		StatusCode: reply.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}, nil
}

func okReply(text string) scriptedReply {
	return scriptedReply{
		status: http.StatusOK,
		body: map[string]any{
			"id":      "msg-1",
			"content": []any{map[string]any{"type": "text", "text": text}},
		},
	}
}

func errorReply(status int, message string) scriptedReply {
	return scriptedReply{
		status: status,
		body: map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": message},
		},
	}
}

func newTestDescriber(t *testing.T, transport *scriptTransport, keys ...string) *Describer {
	t.Helper()
	if len(keys) == 0 {
		keys = []string{"key-a", "key-b", "key-c"}
	}
	pool, err := credentials.NewPool(keys)
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
	return NewDescriber(factory, zerolog.Nop())
}

func testImages(n int) [][]byte {
	images := make([][]byte, n)
	for i := range images {
		images[i] = []byte{0xFF, 0xD8, byte(i)}
	}
	return images
}

func TestDescribeBatchesOfThree(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		okReply("밝은 공간\n정돈된 분위기\n따뜻한 색감"),
		okReply("아늑한 느낌"),
	}}
	d := newTestDescriber(t, transport)

	got := d.Describe(context.Background(), testImages(4))

	if len(transport.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(transport.calls))
	}
	if transport.calls[0].images != 3 || transport.calls[1].images != 1 {
		t.Fatalf("batch sizes = %d,%d, want 3,1", transport.calls[0].images, transport.calls[1].images)
	}
	if len(got) != 4 {
		t.Fatalf("descriptions = %d, want 4", len(got))
	}
}

func TestDescribeCreditErrorRotatesKeyAndRetries(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		errorReply(http.StatusBadRequest, "Your credit balance is too low"),
		okReply("편안한 분위기"),
	}}
	d := newTestDescriber(t, transport)

	got := d.Describe(context.Background(), testImages(1))

	if len(transport.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(transport.calls))
	}
	if transport.calls[0].key == transport.calls[1].key {
		t.Fatalf("retry reused key %q, want a rotated key", transport.calls[0].key)
	}
	if len(got) != 1 {
		t.Fatalf("descriptions = %d, want 1", len(got))
	}
}

func TestDescribePayloadTooLargeFallsBackToSingles(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		errorReply(http.StatusRequestEntityTooLarge, "request too large"),
		okReply("첫 번째 인상"),
		okReply("두 번째 인상"),
		okReply("세 번째 인상"),
	}}
	d := newTestDescriber(t, transport)

	got := d.Describe(context.Background(), testImages(3))

	if len(transport.calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(transport.calls))
	}
	for i, call := range transport.calls[1:] {
		if call.images != 1 {
			t.Fatalf("single call %d carried %d images, want 1", i, call.images)
		}
	}
	if len(got) != 3 {
		t.Fatalf("descriptions = %d, want 3", len(got))
	}
}

func TestDescribeUnknownErrorSkipsBatch(t *testing.T) {
	transport := &scriptTransport{replies: []scriptedReply{
		errorReply(http.StatusInternalServerError, "overloaded"),
	}}
	d := newTestDescriber(t, transport)

	got := d.Describe(context.Background(), testImages(2))

	if len(transport.calls) != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on transient errors)", len(transport.calls))
	}
	if len(got) != 0 {
		t.Fatalf("descriptions = %d, want 0", len(got))
	}
}
