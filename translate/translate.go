// Package translate turns reconciled transcript units into target
// language text, with short-lived caching of repeats and rate
// limiting of partial-text previews.
package translate

import (
	"context"
	"fmt"
	"os"
	"time"
)

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

func New(model string) (Translator, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("set OPENAI_API_KEY environment variable")
	}
	return NewOpenAI(key, model), nil
}

// WithTimeout bounds every call so a stuck provider fails the unit
// instead of stalling the pipeline.
func WithTimeout(inner Translator, d time.Duration) Translator {
	return &timeoutTranslator{inner: inner, d: d}
}

type timeoutTranslator struct {
	inner Translator
	d     time.Duration
}

func (t *timeoutTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Translate(ctx, text, source, target)
}
