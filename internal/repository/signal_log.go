package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"AltScan/internal/domain/models"
	"AltScan/internal/domain/repository"
	"AltScan/pkg/logger"
)

const ringSize = 512

// FileSignalLog implements SignalLog over daily JSONL files. Every scan
// outcome is one appended line; a bounded in-memory ring serves the ops
// API without touching disk.
type FileSignalLog struct {
	dir    string
	logger *logger.Logger

	mu   sync.Mutex
	day  string
	file *os.File
	ring []*models.AlertLine
}

// NewFileSignalLog creates the log directory and hydrates the ring from
// today's file when one exists.
func NewFileSignalLog(dir string, lgr *logger.Logger) (repository.SignalLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create signal log dir: %w", err)
	}
	s := &FileSignalLog{dir: dir, logger: lgr}

	today := time.Now().UTC().Format("2006-01-02")
	lines, skipped, err := ReadAlertFile(s.pathFor(today))
	if err == nil {
		for i := range lines {
			s.push(&lines[i])
		}
		if skipped > 0 {
			lgr.Warn("signal log had malformed lines", logger.Int("skipped", skipped))
		}
	}
	return s, nil
}

func (s *FileSignalLog) pathFor(day string) string {
	return filepath.Join(s.dir, fmt.Sprintf("alerts-%s.json", day))
}

// Append writes the record to its UTC day file and remembers it in the
// ring.
func (s *FileSignalLog) Append(_ context.Context, line *models.AlertLine) error {
	day := time.Now().UTC().Format("2006-01-02")
	if ts, ok := line.Time(); ok {
		day = ts.UTC().Format("2006-01-02")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil || s.day != day {
		if s.file != nil {
			_ = s.file.Close()
		}
		f, err := os.OpenFile(s.pathFor(day), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open signal log: %w", err)
		}
		s.file, s.day = f, day
	}

	b, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if _, err := s.file.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append signal: %w", err)
	}

	s.push(line)
	return nil
}

func (s *FileSignalLog) push(line *models.AlertLine) {
	s.ring = append(s.ring, line)
	if len(s.ring) > ringSize {
		s.ring = s.ring[len(s.ring)-ringSize:]
	}
}

// Recent returns up to limit newest records, newest first, optionally
// filtered by symbol and side.
func (s *FileSignalLog) Recent(symbol, side string, limit int) []*models.AlertLine {
	if limit < 1 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.AlertLine, 0, limit)
	for i := len(s.ring) - 1; i >= 0 && len(out) < limit; i-- {
		line := s.ring[i]
		if symbol != "" && line.Symbol != symbol {
			continue
		}
		if side != "" && line.Side != side {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s *FileSignalLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}
