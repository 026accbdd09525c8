package models

import "fmt"

// EventNone is the first_event value when neither stop nor any target was
// touched inside the horizon.
const EventNone = "NONE"

// EventSL is the first_event value for a stop-loss touch.
const EventSL = "SL"

// EventTP names the take-profit event for a 1-based ladder index.
func EventTP(idx int) string {
	return fmt.Sprintf("TP%d", idx)
}

// LabelResult is the outcome of replaying one alert against its forward
// window. All fields carry their defaults until the corresponding event
// is observed.
type LabelResult struct {
	HitSL        bool    `json:"hit_sl"`
	HitTPs       []bool  `json:"hit_tps"`        // index i is ladder target i+1
	FirstEvent   string  `json:"first_event"`    // "SL", "TP<n>" or "NONE"
	MaxTPReached int     `json:"max_tp_reached"` // deepest 1-based target, 0 when none
	RRAtMaxTP    float64 `json:"rr_at_max_tp"`   // -1 for a stop-out with no target hit
}

// NewLabelResult returns the all-default result for a ladder of the given
// size: nothing hit, first event NONE, reward zero.
func NewLabelResult(ladder int) LabelResult {
	if ladder < 0 {
		ladder = 0
	}
	return LabelResult{
		HitTPs:     make([]bool, ladder),
		FirstEvent: EventNone,
	}
}
