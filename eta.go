package main

import (
	"fmt"
	"math"
	"sync"
	"time"
)

type batteryPhase string

const (
	phaseDischarge batteryPhase = "discharge"
	phaseCharge    batteryPhase = "charge"
)

// rateEstimator tracks how fast the headset battery moves in each phase
// and projects time-to-empty / time-to-full from it. It is fed from the
// session worker but read from the tray menu, hence the lock.
var rateEstimator = newBatteryEstimator()

const (
	// Samples further apart than this describe a gap (sleep, dongle
	// unplugged), not a drain rate.
	maxSampleGap = 30 * time.Minute
	// %/hour beyond which a computed rate is driver noise.
	maxRateMagnitude = 60.0
	minRateSamples   = 3
	rateEMAAlpha     = 0.3
)

// phaseModel is the persisted shape of one phase's rate history.
type phaseModel struct {
	Rates     []float64 `json:"rates"`
	LastLevel int       `json:"lastLevel"`
	LastSeen  string    `json:"lastSeen"`
}

type phaseState struct {
	rates     []float64
	lastLevel int
	lastSeen  time.Time
}

type batteryEstimate struct {
	Valid   bool
	Hours   float64
	Samples int
	Phase   batteryPhase
	Rate    float64 // %/hour, positive magnitude
}

type batteryEstimator struct {
	mu     sync.Mutex
	phases map[batteryPhase]*phaseState
}

func newBatteryEstimator() *batteryEstimator {
	return &batteryEstimator{phases: map[batteryPhase]*phaseState{}}
}

func (b *batteryEstimator) phase(p batteryPhase) *phaseState {
	st, ok := b.phases[p]
	if !ok {
		st = &phaseState{lastLevel: -1}
		b.phases[p] = st
	}
	return st
}

// RecordSample folds one observed level into the matching phase model.
func (b *batteryEstimator) RecordSample(level int, charging bool, ts time.Time) {
	if level < 0 || level > 100 {
		return
	}
	phase := phaseDischarge
	if charging {
		phase = phaseCharge
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.phase(phase)
	// a phase flip invalidates the previous anchor point
	other := phaseDischarge
	if phase == phaseDischarge {
		other = phaseCharge
	}
	b.phase(other).lastLevel = -1

	if st.lastLevel >= 0 && !st.lastSeen.IsZero() {
		dt := ts.Sub(st.lastSeen)
		if dt > 0 && dt < maxSampleGap && level != st.lastLevel {
			rate := float64(level-st.lastLevel) / dt.Hours()
			if math.Abs(rate) <= maxRateMagnitude {
				st.rates = append(st.rates, rate)
				if len(st.rates) > 64 {
					st.rates = st.rates[len(st.rates)-64:]
				}
			}
		}
	}
	st.lastLevel = level
	st.lastSeen = ts
}

// Estimate projects hours remaining (discharge) or hours until full
// (charge) for the given level.
func (b *batteryEstimator) Estimate(level int, charging bool) (batteryEstimate, bool) {
	phase := phaseDischarge
	if charging {
		phase = phaseCharge
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.phases[phase]
	if !ok || len(st.rates) < minRateSamples {
		return batteryEstimate{}, false
	}
	rate := emaRate(st.rates)
	if math.Abs(rate) < 0.05 {
		return batteryEstimate{}, false
	}

	var span float64
	if charging {
		if rate <= 0 {
			return batteryEstimate{}, false
		}
		span = float64(100-level) / rate
	} else {
		if rate >= 0 {
			return batteryEstimate{}, false
		}
		span = float64(level) / -rate
	}
	return batteryEstimate{
		Valid:   true,
		Hours:   span,
		Samples: len(st.rates),
		Phase:   phase,
		Rate:    math.Abs(rate),
	}, true
}

func (b *batteryEstimator) Snapshot() map[string]phaseModel {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]phaseModel, len(b.phases))
	for p, st := range b.phases {
		rates := make([]float64, len(st.rates))
		copy(rates, st.rates)
		out[string(p)] = phaseModel{
			Rates:     rates,
			LastLevel: st.lastLevel,
			LastSeen:  st.lastSeen.Format(time.RFC3339),
		}
	}
	return out
}

func (b *batteryEstimator) Restore(models map[string]phaseModel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, m := range models {
		p := batteryPhase(name)
		if p != phaseDischarge && p != phaseCharge {
			continue
		}
		st := b.phase(p)
		st.rates = append(st.rates[:0], m.Rates...)
		st.lastLevel = m.LastLevel
		if t, err := time.Parse(time.RFC3339, m.LastSeen); err == nil {
			st.lastSeen = t
		}
	}
}

func emaRate(rates []float64) float64 {
	if len(rates) == 0 {
		return 0
	}
	ema := rates[0]
	for _, r := range rates[1:] {
		ema = rateEMAAlpha*r + (1-rateEMAAlpha)*ema
	}
	return ema
}

// formatEstimate renders the menu's "time left" suffix, or "" when
// there is not enough history to say anything useful.
func formatEstimate(level int, charging bool) string {
	est, ok := rateEstimator.Estimate(level, charging)
	if !ok || !est.Valid || est.Hours <= 0 {
		return ""
	}
	h := int(est.Hours)
	m := int(math.Round((est.Hours - float64(h)) * 60))
	if m == 60 {
		h, m = h+1, 0
	}
	var span string
	if h > 0 {
		span = fmt.Sprintf("%dh %02dm", h, m)
	} else {
		span = fmt.Sprintf("%dm", m)
	}
	if charging {
		return fmt.Sprintf("~%s to full", span)
	}
	return fmt.Sprintf("~%s left", span)
}
