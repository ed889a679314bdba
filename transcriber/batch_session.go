package transcriber

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"glot/encoder"
	"glot/log"
)

type transcribeFunc func(ctx context.Context, audio []byte, format string) (*Result, error)

// batchSession transcribes one segment per request. Batch providers
// produce no interim hypotheses, so onPartial is never called.
type batchSession struct {
	cfg        SessionConfig
	transcribe transcribeFunc
}

func newBatchSession(cfg SessionConfig, transcribe transcribeFunc) (*batchSession, error) {
	if cfg.Format != "" && cfg.Format != "flac" {
		return nil, fmt.Errorf("unsupported batch format %q", cfg.Format)
	}
	return &batchSession{cfg: cfg, transcribe: transcribe}, nil
}

func (bs *batchSession) Transcribe(ctx context.Context, pcm []byte, _ func(string)) (string, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return "", err
	}

	encStart := time.Now()
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := min(i+encoder.BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return "", fmt.Errorf("encoding segment: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("closing encoder: %w", err)
	}
	enc.AddEncodeTime(time.Since(encStart))

	result, err := bs.transcribe(ctx, enc.Bytes(), "flac")
	if err != nil {
		return "", err
	}
	if m := result.Metrics; m != nil {
		log.BatchRequest(
			float64(m.Sum().Milliseconds()),
			float64(m.TTFB.Milliseconds()),
			float64(enc.EncodeTime().Milliseconds()),
			result.Duration,
			m.ConnReused,
			m.TLSProtocol,
			result.RateLimit,
		)
	}
	return strings.TrimSpace(result.Text), nil
}

func (bs *batchSession) Close() error { return nil }
