package log

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
	writer  *bufio.Writer
)

// NewLogger builds the application logger. When debug is enabled the level
// drops to Debug, otherwise Info. Output goes to stdout and, when a save
// directory is given, to a timestamped log file that is flushed on demand.
func NewLogger(debug bool, saveDirectory string, suffix string) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	out := io.Writer(os.Stdout)
	if saveDirectory != "" {
		if err := os.MkdirAll(saveDirectory, 0755); err != nil {
			return nil, fmt.Errorf("error creating log directory %s: %w", saveDirectory, err)
		}

		name := fmt.Sprintf("kanto-%s.log", time.Now().Format("2006-01-02-15_04_05"))
		if suffix != "" {
			name = fmt.Sprintf("kanto-%s-%s.log", suffix, time.Now().Format("2006-01-02-15_04_05"))
		}

		f, err := os.Create(filepath.Join(saveDirectory, name))
		if err != nil {
			return nil, fmt.Errorf("error creating log file: %w", err)
		}

		mu.Lock()
		logFile = f
		writer = bufio.NewWriter(f)
		out = io.MultiWriter(os.Stdout, writer)
		mu.Unlock()
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	})), nil
}

// FlushLog forces buffered log lines to disk, used after recovering a panic.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		_ = writer.Flush()
	}
}

// FlushAndClose flushes pending lines and closes the log file.
func FlushAndClose() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		_ = writer.Flush()
		writer = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
