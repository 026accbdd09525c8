package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"AltScan/internal/domain/models"
	"AltScan/pkg/util"
)

// WriteLabelCSV writes labeled alerts as a flat table. The hit_tp
// column count follows the deepest ladder present in the batch so mixed
// configurations stay readable in one file.
func WriteLabelCSV(path string, rows []models.LabeledAlert) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	tpCols := 0
	for _, row := range rows {
		if len(row.HitTPs) > tpCols {
			tpCols = len(row.HitTPs)
		}
	}

	header := []string{"id", "timestamp", "symbol", "side", "tf", "entry", "sl", "tps", "base_score", "mtf_score", "ctx_adj", "final_score", "hit_sl"}
	for i := 0; i < tpCols; i++ {
		header = append(header, fmt.Sprintf("hit_tp%d", i+1))
	}
	header = append(header, "first_event", "max_tp_reached", "rr_at_max_tp", "error")

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.ID,
			row.Timestamp,
			row.Symbol,
			row.Side,
			row.TF,
			optFloat(row.Entry),
			optFloat(row.SL),
			joinFloats(row.TPs),
			strconv.Itoa(row.BaseScore),
			strconv.Itoa(row.MtfScore),
			strconv.Itoa(row.CtxAdj),
			strconv.Itoa(row.Final),
			strconv.FormatBool(row.HitSL),
		}
		for i := 0; i < tpCols; i++ {
			hit := i < len(row.HitTPs) && row.HitTPs[i]
			rec = append(rec, strconv.FormatBool(hit))
		}
		rec = append(rec,
			row.FirstEvent,
			strconv.Itoa(row.MaxTPReached),
			util.FloatString(row.RRAtMaxTP),
			row.Error,
		)
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteLabelJSONL writes one labeled alert per line, mirroring the
// input log format so downstream tooling can reuse the same reader.
func WriteLabelJSONL(path string, rows []models.LabeledAlert) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	for i := range rows {
		b, err := json.Marshal(&rows[i])
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return util.FloatString(*v)
}

func joinFloats(vs []float64) string {
	if len(vs) == 0 {
		return ""
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = util.FloatString(v)
	}
	return strings.Join(parts, "|")
}
