package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"glot/encoder"
	"glot/log"
)

const (
	streamChunkMs     = 200
	streamChunkBytes  = encoder.SampleRate * encoder.Channels * (encoder.BitsPerSample / 8) * streamChunkMs / 1000
	streamFinalizeMax = 15 * time.Second
	streamKeepAlive   = 5 * time.Second
)

// errMalformed marks a stream message that could not be decoded.
// The session skips these instead of failing the segment.
var errMalformed = errors.New("malformed stream message")

type rawStream interface {
	Send(ctx context.Context, pcm []byte) error
	Finalize(ctx context.Context) error
	KeepAlive(ctx context.Context) error
	Recv(ctx context.Context) (streamUpdate, error)
	Close() error
}

type streamUpdate struct {
	Transcript   string
	IsFinal      bool
	SpeechFinal  bool
	FromFinalize bool
}

// streamSession keeps one provider WebSocket open across segments.
// While no segment is in flight a keepalive ticker stops the server
// from closing the idle connection.
type streamSession struct {
	ws       rawStream
	busy     atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

func newStreamSession(ws rawStream) *streamSession {
	s := &streamSession{ws: ws, stop: make(chan struct{})}
	go s.keepAliveLoop()
	return s
}

func (s *streamSession) keepAliveLoop() {
	t := time.NewTicker(streamKeepAlive)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			if s.busy.Load() {
				continue
			}
			if err := s.ws.KeepAlive(context.Background()); err != nil {
				return
			}
		}
	}
}

func (s *streamSession) Transcribe(ctx context.Context, pcm []byte, onPartial func(string)) (string, error) {
	s.busy.Store(true)
	defer s.busy.Store(false)

	for off := 0; off < len(pcm); off += streamChunkBytes {
		end := min(off+streamChunkBytes, len(pcm))
		if err := s.ws.Send(ctx, pcm[off:end]); err != nil {
			return "", fmt.Errorf("sending audio: %w", err)
		}
	}
	if err := s.ws.Finalize(ctx); err != nil {
		return "", fmt.Errorf("finalizing segment: %w", err)
	}

	finalizeCtx, cancel := context.WithTimeout(ctx, streamFinalizeMax)
	defer cancel()

	var committed []string
	for {
		update, err := s.ws.Recv(finalizeCtx)
		if errors.Is(err, errMalformed) {
			log.Debug("skipping undecodable stream message")
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reading stream: %w", err)
		}

		isFinal := update.IsFinal || update.SpeechFinal || update.FromFinalize

		if !isFinal {
			if update.Transcript != "" && onPartial != nil {
				onPartial(joinHypothesis(committed, update.Transcript))
			}
			continue
		}

		if update.Transcript != "" {
			committed = append(committed, update.Transcript)
		}
		if update.FromFinalize {
			return strings.Join(committed, " "), nil
		}
	}
}

func (s *streamSession) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.ws.Close()
}

func joinHypothesis(committed []string, interim string) string {
	if len(committed) == 0 {
		return interim
	}
	return strings.Join(committed, " ") + " " + interim
}
