package labeling

import (
	"context"
	"fmt"

	"AltScan/internal/domain/models"
	"AltScan/internal/domain/repository"
	"AltScan/pkg/logger"
)

// Runner labels alert batches, fetching each record's forward window from
// the bar provider. One bad record never stops the batch: fetch failures
// are recorded on the output row and the walk moves on.
type Runner struct {
	provider repository.BarProvider
	logger   *logger.Logger
	metrics  repository.Metrics
	horizon  int
}

func NewRunner(provider repository.BarProvider, lgr *logger.Logger, metrics repository.Metrics, horizon int) *Runner {
	if horizon < 1 {
		horizon = 48
	}
	return &Runner{provider: provider, logger: lgr, metrics: metrics, horizon: horizon}
}

// LabelAlerts walks the batch in order and returns one labeled row per
// input record.
func (r *Runner) LabelAlerts(ctx context.Context, alerts []models.AlertLine) []models.LabeledAlert {
	out := make([]models.LabeledAlert, 0, len(alerts))
	for i := range alerts {
		out = append(out, r.labelOne(ctx, alerts[i]))
	}
	return out
}

func (r *Runner) labelOne(ctx context.Context, line models.AlertLine) models.LabeledAlert {
	row := models.LabeledAlert{
		AlertLine:   line,
		LabelResult: models.NewLabelResult(len(line.TPs)),
	}

	side, ok := models.ParseSide(line.Side)
	tradable := ok && (side == models.SideBuy || side == models.SideSell) &&
		line.Symbol != "" && line.Entry != nil && *line.Entry != 0 && line.SL != nil
	ts, tok := line.Time()
	if !tradable || !tok {
		return row
	}

	tf := repository.NormalizeTimeframe(line.TF)
	start := ts.Add(tf.Duration())
	bars, err := r.provider.FetchBarsFrom(ctx, line.Symbol, tf, start, r.horizon)
	if err != nil {
		row.Error = fmt.Sprintf("kline_fetch_error: %v", err)
		if r.metrics != nil {
			r.metrics.RecordError("label_fetch")
		}
		r.logger.Warn("forward window fetch failed",
			logger.String("symbol", line.Symbol),
			logger.String("id", line.ID),
			logger.Error(err))
		return row
	}

	row.LabelResult = Label(&line, bars, r.horizon)
	return row
}

// Summary aggregates a labeled batch for the run report.
type Summary struct {
	Total   int
	Labeled int
	Errors  int
	HitSL   int
	HitTP   int
	NoEvent int
}

func Summarize(rows []models.LabeledAlert) Summary {
	var s Summary
	s.Total = len(rows)
	for _, row := range rows {
		if row.Error != "" {
			s.Errors++
			continue
		}
		s.Labeled++
		switch {
		case row.MaxTPReached > 0:
			s.HitTP++
		case row.HitSL:
			s.HitSL++
		default:
			s.NoEvent++
		}
	}
	return s
}
