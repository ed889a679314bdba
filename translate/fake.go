package translate

import (
	"context"
	"fmt"
	"sync"
)

// FakeTranslator tags text with the target language and records every
// call, so tests can count translation requests per language.
type FakeTranslator struct {
	mu    sync.Mutex
	calls []FakeCall
	errs  map[string]error
}

type FakeCall struct {
	Text   string
	Source string
	Target string
}

func NewFakeTranslator() *FakeTranslator {
	return &FakeTranslator{errs: make(map[string]error)}
}

// FailLanguage makes every call for the given target language fail.
func (f *FakeTranslator) FailLanguage(lang string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[lang] = err
}

func (f *FakeTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Text: text, Source: source, Target: target})
	err := f.errs[target]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", target, text), nil
}

func (f *FakeTranslator) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeTranslator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
