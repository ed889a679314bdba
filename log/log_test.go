package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestInitFilesCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := InitFiles(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "transcript_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestTranscriptText(t *testing.T) {
	tmp := setupLogDir(t)

	if err := InitFiles(); err != nil {
		t.Fatal(err)
	}

	TranscriptText(7, "hello world")

	data, err := os.ReadFile(filepath.Join(tmp, "transcript_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "hello world") {
		t.Errorf("transcript_log.txt missing text, got: %q", line)
	}
	// format: "2006-01-02 15:04:05\t[pid]\tseq\ttext\n"
	if !strings.Contains(line, "\t7\t") {
		t.Errorf("expected tab-separated format with seq, got: %q", line)
	}
}

func TestTranscriptTextBeforeInit(t *testing.T) {
	setupLogDir(t)
	TranscriptText(1, "dropped") // must not panic without InitFiles
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := InitFiles(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
