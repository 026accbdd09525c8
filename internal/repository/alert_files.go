package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"AltScan/internal/domain/models"
)

// ReadAlertFile parses one JSONL alert file. Blank and malformed lines
// are counted and skipped, not fatal: log files are appended live and a
// torn final line must not poison a labeling run.
func ReadAlertFile(path string) ([]models.AlertLine, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open alert file: %w", err)
	}
	defer f.Close()

	var (
		lines   []models.AlertLine
		skipped int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line models.AlertLine
		if err := json.Unmarshal(raw, &line); err != nil {
			skipped++
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan alert file: %w", err)
	}
	return lines, skipped, nil
}

// ReadAlertDir loads every alerts-*.json file under dir, oldest file
// first. The date-stamped names sort chronologically.
func ReadAlertDir(dir string) ([]models.AlertLine, int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "alerts-*.json"))
	if err != nil {
		return nil, 0, fmt.Errorf("glob alert dir: %w", err)
	}
	sort.Strings(paths)

	var (
		all     []models.AlertLine
		skipped int
	)
	for _, path := range paths {
		lines, n, err := ReadAlertFile(path)
		if err != nil {
			return nil, skipped, err
		}
		all = append(all, lines...)
		skipped += n
	}
	return all, skipped, nil
}
