package transcriber

import (
	"context"
	"sync"
	"testing"
)

type streamStep struct {
	update streamUpdate
	err    error
}

// scriptedStream replays a canned server script and records what the
// session sent.
type scriptedStream struct {
	mu        sync.Mutex
	steps     []streamStep
	sent      [][]byte
	finalized int
	keepalive int
	closed    bool
}

func (s *scriptedStream) Send(_ context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	s.sent = append(s.sent, buf)
	return nil
}

func (s *scriptedStream) Finalize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized++
	return nil
}

func (s *scriptedStream) KeepAlive(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepalive++
	return nil
}

func (s *scriptedStream) Recv(ctx context.Context) (streamUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		<-ctx.Done()
		return streamUpdate{}, ctx.Err()
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.update, step.err
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestStreamSessionTranscribe(t *testing.T) {
	ws := &scriptedStream{steps: []streamStep{
		{update: streamUpdate{Transcript: "hel"}},
		{update: streamUpdate{Transcript: "hello there", IsFinal: true}},
		{err: errMalformed},
		{update: streamUpdate{Transcript: "hello there"}},
		{update: streamUpdate{Transcript: "general", FromFinalize: true}},
	}}
	sess := newStreamSession(ws)
	defer sess.Close()

	var partials []string
	text, err := sess.Transcribe(context.Background(), make([]byte, streamChunkBytes), func(p string) {
		partials = append(partials, p)
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello there general" {
		t.Errorf("text = %q, want %q", text, "hello there general")
	}

	// Interim before the first commit, then interim appended after it.
	want := []string{"hel", "hello there hello there"}
	if len(partials) != len(want) {
		t.Fatalf("partials = %v, want %v", partials, want)
	}
	for i, w := range want {
		if partials[i] != w {
			t.Errorf("partial[%d] = %q, want %q", i, partials[i], w)
		}
	}

	if ws.finalized != 1 {
		t.Errorf("finalize messages = %d, want 1", ws.finalized)
	}
}

func TestStreamSessionChunksAudio(t *testing.T) {
	ws := &scriptedStream{steps: []streamStep{
		{update: streamUpdate{Transcript: "ok", FromFinalize: true}},
	}}
	sess := newStreamSession(ws)
	defer sess.Close()

	// One second of PCM plus half a chunk.
	pcm := make([]byte, streamChunkBytes*5+streamChunkBytes/2)
	if _, err := sess.Transcribe(context.Background(), pcm, nil); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if len(ws.sent) != 6 {
		t.Fatalf("sent %d chunks, want 6", len(ws.sent))
	}
	var total int
	for i, chunk := range ws.sent[:5] {
		if len(chunk) != streamChunkBytes {
			t.Errorf("chunk[%d] = %d bytes, want %d", i, len(chunk), streamChunkBytes)
		}
		total += len(chunk)
	}
	total += len(ws.sent[5])
	if total != len(pcm) {
		t.Errorf("sent %d bytes total, want %d", total, len(pcm))
	}
}

func TestStreamSessionEmptyFinalize(t *testing.T) {
	ws := &scriptedStream{steps: []streamStep{
		{update: streamUpdate{FromFinalize: true}},
	}}
	sess := newStreamSession(ws)
	defer sess.Close()

	text, err := sess.Transcribe(context.Background(), make([]byte, 100), nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}
