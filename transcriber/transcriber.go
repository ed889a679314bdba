package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ErrQuotaExhausted marks provider failures that a fresh connection
// cannot fix. The pool stops replacing sessions once it sees one.
var ErrQuotaExhausted = errors.New("transcription quota exhausted")

type SessionConfig struct {
	Language       string
	Model          string
	Format         string // batch upload format, only "flac" supported
	SampleRate     int
	Channels       int
	ConnectTimeout time.Duration
}

// Session is one live provider connection. Transcribe submits a single
// segment and blocks until its final transcript arrives; interim
// hypotheses, when the provider produces them, are delivered through
// onPartial. A session handles one segment at a time and callers must
// not invoke Transcribe concurrently on the same session.
type Session interface {
	Transcribe(ctx context.Context, pcm []byte, onPartial func(text string)) (string, error)
	Close() error
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

type baseTranscriber struct {
	lang string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

func New() (Transcriber, error) {
	dgKey := os.Getenv("DEEPGRAM_API_KEY")
	groqKey := os.Getenv("GROQ_API_KEY")

	if dgKey != "" {
		return NewDeepgram(dgKey), nil
	}
	if groqKey != "" {
		return NewGroq(groqKey), nil
	}

	return nil, fmt.Errorf("set DEEPGRAM_API_KEY or GROQ_API_KEY environment variable")
}

// Fragment is one unit of transcriber output, tagged with the sequence
// number of the segment that produced it.
type Fragment struct {
	Seq       uint64
	Text      string
	IsPartial bool
	Err       error
}

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration

	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

type Result struct {
	Text      string
	Metrics   *NetworkMetrics
	RateLimit string
	Duration  float64
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
