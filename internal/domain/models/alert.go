package models

import "time"

// AlertLine is the flat JSON projection of a SignalRecord, one line per
// record in the daily signal log. Entry, stop and ladder are omitted when
// the scan decided no side, so consumers never read a misleading zero.
type AlertLine struct {
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"` // RFC3339, UTC
	Symbol    string     `json:"symbol"`
	Exchange  string     `json:"exchange"`
	Side      string     `json:"side"`
	TF        string     `json:"tf"`
	Entry     *float64   `json:"entry,omitempty"`
	SL        *float64   `json:"sl,omitempty"`
	TPs       []float64  `json:"tps,omitempty"`
	BaseScore int        `json:"base_score"`
	MtfScore  int        `json:"mtf_score"`
	CtxAdj    int        `json:"ctx_adj"`
	Final     int        `json:"final_score"`
	Tags      []string   `json:"tags"`
	Features  FeatureSet `json:"features"`
}

func NewAlertLine(rec *SignalRecord) *AlertLine {
	line := &AlertLine{
		ID:        rec.ID(),
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		Symbol:    rec.Symbol,
		Exchange:  rec.Exchange,
		Side:      string(rec.Side),
		TF:        rec.Timeframe,
		BaseScore: rec.Score.Base,
		MtfScore:  rec.Score.Mtf,
		CtxAdj:    rec.Score.Ctx,
		Final:     rec.Score.Final,
		Tags:      rec.Features.Tags(),
		Features:  rec.Features,
	}
	if rec.Side != SideNone && !rec.Levels.Empty() {
		entry, sl := rec.Levels.Entry, rec.Levels.StopLoss
		line.Entry = &entry
		line.SL = &sl
		line.TPs = append([]float64(nil), rec.Levels.TakeProfits...)
	}
	return line
}

// Time parses the record timestamp. Zero time and false when missing or
// malformed.
func (a *AlertLine) Time() (time.Time, bool) {
	if a.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, a.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LabeledAlert is one labeler output row: the original alert plus its
// forward-window outcome. Error records a per-alert fetch failure.
type LabeledAlert struct {
	AlertLine
	LabelResult
	Error string `json:"error,omitempty"`
}
