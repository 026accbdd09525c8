package levels

import (
	"testing"

	"AltScan/internal/domain/models"
)

var calcCfg = Config{SLAtrMult: 1.0, TPAtrMults: []float64{1.0, 2.0}}

func TestCalcBuyLadder(t *testing.T) {
	set := Calc(models.SideBuy, 100, 2, calcCfg)
	if set.Entry != 100 || set.StopLoss != 98 {
		t.Fatalf("unexpected entry/stop %+v", set)
	}
	if len(set.TakeProfits) != 2 || set.TakeProfits[0] != 102 || set.TakeProfits[1] != 104 {
		t.Fatalf("unexpected ladder %v", set.TakeProfits)
	}
}

func TestCalcSellMirrors(t *testing.T) {
	set := Calc(models.SideSell, 100, 2, calcCfg)
	if set.StopLoss != 102 {
		t.Fatalf("unexpected stop %v", set.StopLoss)
	}
	if set.TakeProfits[0] != 98 || set.TakeProfits[1] != 96 {
		t.Fatalf("unexpected ladder %v", set.TakeProfits)
	}
}

func TestCalcNoneIsEmpty(t *testing.T) {
	set := Calc(models.SideNone, 100, 2, calcCfg)
	if !set.Empty() {
		t.Fatalf("no side must yield the empty set, got %+v", set)
	}
}

func TestCalcLadderGrowsWithATR(t *testing.T) {
	narrow := Calc(models.SideBuy, 100, 1, calcCfg)
	wide := Calc(models.SideBuy, 100, 3, calcCfg)
	if wide.TakeProfits[1]-wide.Entry <= narrow.TakeProfits[1]-narrow.Entry {
		t.Fatalf("wider atr should push targets further out")
	}
}
