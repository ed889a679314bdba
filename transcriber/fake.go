package transcriber

import (
	"context"
	"sync"
	"time"
)

// FakeScript describes the response for one segment. Segments select
// their script by the first PCM byte, which lets tests stage precise
// out-of-order completion with per-segment delays.
type FakeScript struct {
	Text     string
	Partials []string
	Delay    time.Duration
	Err      error
}

type FakeTranscriber struct {
	scripts []FakeScript
	lang    string

	mu       sync.Mutex
	sessions int
	calls    int
}

func NewFake(scripts ...FakeScript) *FakeTranscriber {
	return &FakeTranscriber{scripts: scripts}
}

func (f *FakeTranscriber) Name() string            { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

// Sessions reports how many sessions have been opened, which lets
// tests observe session replacement after failures.
func (f *FakeTranscriber) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

func (f *FakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeTranscriber) NewSession(_ context.Context, cfg SessionConfig) (Session, error) {
	if cfg.Language != "" {
		f.SetLanguage(cfg.Language)
	}
	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()
	return &fakeSession{f: f}, nil
}

type fakeSession struct {
	f *FakeTranscriber
}

func (s *fakeSession) Transcribe(ctx context.Context, pcm []byte, onPartial func(string)) (string, error) {
	s.f.mu.Lock()
	s.f.calls++
	s.f.mu.Unlock()

	idx := 0
	if len(pcm) > 0 {
		idx = int(pcm[0])
	}
	if idx >= len(s.f.scripts) {
		return "", nil
	}
	sc := s.f.scripts[idx]

	for _, p := range sc.Partials {
		if onPartial != nil {
			onPartial(p)
		}
	}
	if sc.Delay > 0 {
		select {
		case <-time.After(sc.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if sc.Err != nil {
		return "", sc.Err
	}
	return sc.Text, nil
}

func (s *fakeSession) Close() error { return nil }
