package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcriptFile *os.File
	logMu          sync.Mutex
	fileReady      bool
	pid            int
	dir            string
)

func init() {
	pid = os.Getpid()
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05.000",
	}
	diagLog = zerolog.New(console).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// SetLevel applies a config-supplied level name; unknown names keep info.
func SetLevel(name string) {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	diagLog = diagLog.Level(lvl)
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// InitFiles switches diagnostics to an append-only file in the log directory
// and opens the transcript log. Console-only operation needs no Init.
func InitFiles() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	var err error
	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcriptPath := filepath.Join(dir, "transcript_log.txt")
	transcriptFile, err = os.OpenFile(transcriptPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	fileReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcriptFile != nil {
		transcriptFile.Close()
		transcriptFile = nil
	}
	fileReady = false
}

func Debug(msg string) {
	diagLog.Debug().Msg(msg)
}

func Debugf(format string, args ...any) {
	diagLog.Debug().Msg(fmt.Sprintf(format, args...))
}

func Info(msg string) {
	diagLog.Info().Msg(msg)
}

func Infof(format string, args ...any) {
	diagLog.Info().Msg(fmt.Sprintf(format, args...))
}

func Error(msg string) {
	diagLog.Error().Msg(msg)
}

func Errorf(format string, args ...any) {
	diagLog.Error().Msg(fmt.Sprintf(format, args...))
}

func Warn(msg string) {
	diagLog.Warn().Msg(msg)
}

func Warnf(format string, args ...any) {
	diagLog.Warn().Msg(fmt.Sprintf(format, args...))
}

// CaptureDrop records lossy-oldest evictions from the capture queue.
// Called at most once per segment interval by the queue's rate limiter.
func CaptureDrop(dropped uint64, capacity int) {
	diagLog.Warn().
		Uint64("dropped_total", dropped).
		Int("capacity", capacity).
		Msg("capture_queue_drop")
}

func SegmentFlush(seq uint64, reason string, durS float64, overlapMs int64, queued int) {
	diagLog.Info().
		Uint64("seq", seq).
		Str("reason", reason).
		Float64("audio_s", durS).
		Int64("overlap_ms", overlapMs).
		Int("queued_chunks", queued).
		Msg("segment_flush")
}

// BatchRequest records one batch transcription round trip: where the
// wall time went, whether the connection was reused, and how much
// rate-limit headroom the provider reports.
func BatchRequest(totalMs, ttfbMs, encodeMs, audioS float64, reused bool, tlsProto, rateLimit string) {
	diagLog.Debug().
		Float64("total_ms", totalMs).
		Float64("ttfb_ms", ttfbMs).
		Float64("encode_ms", encodeMs).
		Float64("audio_s", audioS).
		Bool("conn_reused", reused).
		Str("tls", tlsProto).
		Str("ratelimit", rateLimit).
		Msg("batch_request")
}

func SessionReplaced(id int, cause error) {
	diagLog.Warn().
		Int("session", id).
		AnErr("cause", cause).
		Msg("provider_session_replaced")
}

func TranslationSkipped(lang string, cause error) {
	diagLog.Warn().
		Str("lang", lang).
		AnErr("cause", cause).
		Msg("translation_skipped")
}

func BroadcastUnit(seq int64, langs, listeners int, totalMs float64) {
	diagLog.Info().
		Int64("seq", seq).
		Int("languages", langs).
		Int("listeners", listeners).
		Float64("total_ms", totalMs).
		Msg("broadcast_unit")
}

// TranscriptText appends committed text to the transcript log, one line per
// reconciled unit. No-op until InitFiles.
func TranscriptText(seq uint64, text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !fileReady {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%d\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, seq, text)
	transcriptFile.WriteString(line)
}

func SessionStart(provider, lang string, poolSize int) {
	diagLog.Info().
		Str("provider", provider).
		Str("lang", lang).
		Int("pool", poolSize).
		Msg("session_start")
}

func SessionEnd(segments uint64, units uint64) {
	diagLog.Info().
		Uint64("segments", segments).
		Uint64("units", units).
		Msg("session_end")
}
