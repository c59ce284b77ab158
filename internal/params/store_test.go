// SPDX-License-Identifier: MIT
package params

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestDefaults(t *testing.T) {
	s := NewStore().Snapshot()
	want := ChainSettings{
		PeakFreq:        750,
		PeakGainDb:      0,
		PeakQuality:     1,
		LowCutFreq:      20,
		HighCutFreq:     20000,
		LowCutSlope:     Slope12,
		HighCutSlope:    Slope12,
		AnalyzerEnabled: true,
	}
	if s != want {
		t.Errorf("Snapshot() = %+v, want %+v", s, want)
	}
}

func TestSlopeOrder(t *testing.T) {
	tests := []struct {
		slope Slope
		order int
		label string
	}{
		{Slope12, 2, "12dB/Oct"},
		{Slope24, 4, "24dB/Oct"},
		{Slope36, 6, "36dB/Oct"},
		{Slope48, 8, "48dB/Oct"},
		{Slope(9), 8, "48dB/Oct"},
	}
	for _, tt := range tests {
		if got := tt.slope.Order(); got != tt.order {
			t.Errorf("Slope(%d).Order() = %d, want %d", tt.slope, got, tt.order)
		}
		if got := tt.slope.String(); got != tt.label {
			t.Errorf("Slope(%d).String() = %q, want %q", tt.slope, got, tt.label)
		}
	}
}

func TestSetAndSnapshot(t *testing.T) {
	store := NewStore()
	steps := []struct {
		id    string
		value float64
	}{
		{IDPeakFreq, 1000},
		{IDPeakGain, 6},
		{IDPeakQuality, 2.5},
		{IDLowCutSlope, 3},
		{IDHighCutSlope, 1},
		{IDPeakBypassed, 1},
		{IDAnalyzerEnabled, 0},
	}
	for _, st := range steps {
		if err := store.Set(st.id, st.value); err != nil {
			t.Fatalf("Set(%q, %v): %v", st.id, st.value, err)
		}
	}

	s := store.Snapshot()
	if s.PeakFreq != 1000 || s.PeakGainDb != 6 || s.PeakQuality != 2.5 {
		t.Errorf("peak = %v/%v/%v", s.PeakFreq, s.PeakGainDb, s.PeakQuality)
	}
	if s.LowCutSlope != Slope48 || s.HighCutSlope != Slope24 {
		t.Errorf("slopes = %v/%v", s.LowCutSlope, s.HighCutSlope)
	}
	if !s.PeakBypassed || s.AnalyzerEnabled {
		t.Errorf("flags = peakBypassed %v analyzer %v", s.PeakBypassed, s.AnalyzerEnabled)
	}
}

func TestSetErrors(t *testing.T) {
	store := NewStore()
	tests := []struct {
		name  string
		id    string
		value float64
		want  error
	}{
		{"unknown", "Nope", 1, ErrUnknownParameter},
		{"below min", IDPeakGain, -30, ErrOutOfRange},
		{"above max", IDLowCutFreq, 20001, ErrOutOfRange},
		{"nan", IDPeakQuality, math.NaN(), ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := store.Generation()
			err := store.Set(tt.id, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Set() error = %v, want %v", err, tt.want)
			}
			if store.Generation() != before {
				t.Error("failed Set bumped the generation")
			}
		})
	}
}

func TestSetSnapsToStep(t *testing.T) {
	store := NewStore()
	if err := store.Set(IDPeakGain, 3.3); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(IDPeakGain); got != 3.5 {
		t.Errorf("Peak Gain = %v, want 3.5", got)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	p := NewStore().params[idxPeakFreq]
	for _, v := range []float64{20, 100, 750, 5000, 20000} {
		n := p.Normalize(v)
		if n < 0 || n > 1 {
			t.Fatalf("Normalize(%v) = %v out of [0,1]", v, n)
		}
		if got := p.Denormalize(n); math.Abs(got-v) > 1 {
			t.Errorf("Denormalize(Normalize(%v)) = %v", v, got)
		}
	}
	// Skew 0.25 gives the low decades most of the travel.
	if n := p.Normalize(1000); n < 0.4 {
		t.Errorf("Normalize(1000) = %v, expected skewed mapping above 0.4", n)
	}
}

func TestSetNormalized(t *testing.T) {
	store := NewStore()
	if err := store.SetNormalized(IDLowCutSlope, 1); err != nil {
		t.Fatal(err)
	}
	if s := store.Snapshot(); s.LowCutSlope != Slope48 {
		t.Errorf("LowCutSlope = %v, want 48dB/Oct", s.LowCutSlope)
	}
	if err := store.SetNormalized("missing", 0.5); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("error = %v, want ErrUnknownParameter", err)
	}
}

func TestSubscribe(t *testing.T) {
	store := NewStore()
	var got []string
	unsubscribe := store.Subscribe(func(id string, _ float64) {
		got = append(got, id)
	})

	_ = store.Set(IDPeakGain, 1)
	_ = store.Set(IDHighCutFreq, 8000)
	unsubscribe()
	unsubscribe()
	_ = store.Set(IDPeakGain, 2)

	if len(got) != 2 || got[0] != IDPeakGain || got[1] != IDHighCutFreq {
		t.Errorf("notifications = %v", got)
	}
}

func TestGenerationAdvances(t *testing.T) {
	store := NewStore()
	g0 := store.Generation()
	_ = store.Set(IDPeakFreq, 440)
	if store.Generation() == g0 {
		t.Error("generation did not advance")
	}
}

func TestStateRoundTrip(t *testing.T) {
	src := NewStore()
	_ = src.Set(IDPeakFreq, 2500)
	_ = src.Set(IDHighCutSlope, 2)
	_ = src.Set(IDLowCutBypassed, 1)

	data, err := src.MarshalState()
	if err != nil {
		t.Fatal(err)
	}
	dst := NewStore()
	if err := dst.UnmarshalState(data); err != nil {
		t.Fatal(err)
	}
	if src.Snapshot() != dst.Snapshot() {
		t.Errorf("restored %+v, want %+v", dst.Snapshot(), src.Snapshot())
	}
}

func TestUnmarshalStateIsAtomic(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "{{{"},
		{"version", "version: 7\nparameters: {}\n"},
		{"out of range", "version: 1\nparameters:\n  Peak Freq: 100\n  Peak Gain: 99\n"},
		{"unknown id", "version: 1\nparameters:\n  Peak Freq: 100\n  Bogus: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			before := store.Snapshot()
			err := store.UnmarshalState([]byte(tt.data))
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("error = %v, want ErrInvalidState", err)
			}
			if store.Snapshot() != before {
				t.Error("failed restore modified the store")
			}
		})
	}
}

func TestFormat(t *testing.T) {
	store := NewStore()
	tests := []struct {
		id    string
		value float64
		want  string
	}{
		{IDPeakFreq, 750, "750 Hz"},
		{IDHighCutFreq, 12000, "12.00 kHz"},
		{IDPeakGain, -3.5, "-3.5 dB"},
		{IDLowCutSlope, 2, "36dB/Oct"},
		{IDPeakBypassed, 1, "On"},
	}
	for _, tt := range tests {
		p, _ := store.Lookup(tt.id)
		if got := p.Format(tt.value); got != tt.want {
			t.Errorf("Format(%s, %v) = %q, want %q", tt.id, tt.value, got, tt.want)
		}
	}
}

func TestSnapshotConcurrentWithWrites(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			_ = store.Set(IDPeakGain, float64(i%48)-24)
		}
	}()
	for range 1000 {
		s := store.Snapshot()
		if s.PeakGainDb < -24 || s.PeakGainDb > 24 {
			t.Fatalf("torn read: %v", s.PeakGainDb)
		}
	}
	wg.Wait()
}

func TestSnapshotNoAllocs(t *testing.T) {
	store := NewStore()
	allocs := testing.AllocsPerRun(100, func() {
		_ = store.Snapshot()
	})
	if allocs > 0 {
		t.Errorf("Snapshot allocated %v times per run", allocs)
	}
}

func BenchmarkSnapshot(b *testing.B) {
	store := NewStore()
	for b.Loop() {
		_ = store.Snapshot()
	}
}
