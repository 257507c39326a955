package main

import (
	"math"
	"testing"
	"time"
)

// feedSamples replays levels at a fixed interval starting at base.
func feedSamples(b *batteryEstimator, charging bool, base time.Time, step time.Duration, levels ...int) {
	for i, lvl := range levels {
		b.RecordSample(lvl, charging, base.Add(time.Duration(i)*step))
	}
}

func TestEstimatorDischargeRate(t *testing.T) {
	b := newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// 2% every 30 minutes is a steady 4%/hour drain
	feedSamples(b, false, base, 30*time.Minute, 100, 98, 96, 94, 92)

	est, ok := b.Estimate(92, false)
	if !ok || !est.Valid {
		t.Fatalf("Estimate(92, false) = %+v, %v; want a valid estimate", est, ok)
	}
	if got, want := est.Rate, 4.0; math.Abs(got-want) > 0.01 {
		t.Errorf("rate = %.3f %%/h, want %.3f", got, want)
	}
	if got, want := est.Hours, 23.0; math.Abs(got-want) > 0.1 {
		t.Errorf("hours remaining = %.2f, want %.2f", got, want)
	}
	if est.Phase != phaseDischarge {
		t.Errorf("phase = %q, want %q", est.Phase, phaseDischarge)
	}
}

func TestEstimatorChargeRate(t *testing.T) {
	b := newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	feedSamples(b, true, base, 30*time.Minute, 50, 60, 70, 80)

	est, ok := b.Estimate(80, true)
	if !ok || !est.Valid {
		t.Fatalf("Estimate(80, true) = %+v, %v; want a valid estimate", est, ok)
	}
	if got, want := est.Hours, 1.0; math.Abs(got-want) > 0.05 {
		t.Errorf("hours to full = %.2f, want %.2f", got, want)
	}
}

func TestEstimatorNeedsEnoughSamples(t *testing.T) {
	b := newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// three levels make only two rates, one short of the minimum
	feedSamples(b, false, base, 30*time.Minute, 100, 98, 96)
	if _, ok := b.Estimate(96, false); ok {
		t.Fatal("estimate produced from too few samples")
	}

	b.RecordSample(94, false, base.Add(90*time.Minute))
	if _, ok := b.Estimate(94, false); !ok {
		t.Fatal("no estimate although enough samples arrived")
	}
}

func TestEstimatorRejectsGapsAndSpikes(t *testing.T) {
	b := newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// a gap longer than maxSampleGap is a sleep, not a drain rate
	b.RecordSample(100, false, base)
	b.RecordSample(40, false, base.Add(maxSampleGap+time.Minute))
	// a 55% jump inside half an hour is driver noise
	b.RecordSample(95, false, base.Add(maxSampleGap+31*time.Minute))

	if _, ok := b.Estimate(95, false); ok {
		t.Fatal("estimate built from gap or spike rates")
	}
}

func TestEstimatorPhaseFlipInvalidatesAnchor(t *testing.T) {
	b := newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	b.RecordSample(50, false, base)
	// an hour on the cable, then back off it; the 50 -> 48 pair must not
	// be read as a two-hour 1%/h drain
	b.RecordSample(60, true, base.Add(time.Hour))
	b.RecordSample(48, false, base.Add(2*time.Hour))

	st := b.phases[phaseDischarge]
	if len(st.rates) != 0 {
		t.Fatalf("discharge rates = %v, want none after a phase flip", st.rates)
	}
}

func TestEstimatorSnapshotRestore(t *testing.T) {
	b := newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	feedSamples(b, false, base, 30*time.Minute, 100, 98, 96, 94, 92)

	restored := newBatteryEstimator()
	restored.Restore(b.Snapshot())

	want, ok1 := b.Estimate(92, false)
	got, ok2 := restored.Estimate(92, false)
	if ok1 != ok2 || got != want {
		t.Errorf("restored estimate = %+v (%v), want %+v (%v)", got, ok2, want, ok1)
	}
}

func TestFormatEstimate(t *testing.T) {
	prev := rateEstimator
	t.Cleanup(func() { rateEstimator = prev })

	rateEstimator = newBatteryEstimator()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	feedSamples(rateEstimator, false, base, 30*time.Minute, 100, 98, 96, 94, 92)

	if got, want := formatEstimate(92, false), "~23h 00m left"; got != want {
		t.Errorf("formatEstimate(92, false) = %q, want %q", got, want)
	}
	// no charge history yet
	if got := formatEstimate(92, true); got != "" {
		t.Errorf("formatEstimate(92, true) = %q, want empty", got)
	}

	feedSamples(rateEstimator, true, base.Add(3*time.Hour), 30*time.Minute, 60, 70, 80, 90)
	if got, want := formatEstimate(90, true), "~30m to full"; got != want {
		t.Errorf("formatEstimate(90, true) = %q, want %q", got, want)
	}
}
