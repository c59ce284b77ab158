// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"equalizer/internal/params"
	"equalizer/internal/plugin"
	"equalizer/pkg/utils"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved samples in [-1, 1] as 16-bit PCM.
func writeWAV(t *testing.T, path string, samples []float32, channels int) {
	t.Helper()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(float64(s) * 32767)
	}
	writePCM(t, path, data, channels, 16)
}

// writePCM encodes raw interleaved sample values at bitDepth.
func writePCM(t *testing.T, path string, data []int, channels, bitDepth int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, testSampleRate, bitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: testSampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func interleave(left, right []float32) []float32 {
	out := make([]float32, 0, 2*len(left))
	for i := range left {
		out = append(out, left[i], right[i])
	}
	return out
}

// tailRMS measures channel ch of an interleaved buffer over its last n
// frames, normalised to full scale.
func tailRMS(data []int, channels, ch, n int) float64 {
	frames := len(data) / channels
	var sum float64
	for i := frames - n; i < frames; i++ {
		v := float64(data[i*channels+ch]) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

func TestRenderAppliesPeakBoost(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.wav"), filepath.Join(dir, "out.wav")

	tone := scaled(utils.SineFloat32(1000, testSampleRate, testSampleRate/2), 0.1)
	writeWAV(t, in, interleave(tone, tone), 2)

	store := params.NewStore()
	_ = store.Set(params.IDPeakFreq, 1000)
	_ = store.Set(params.IDPeakGain, 12)
	proc := plugin.New(store)

	stats, err := RenderFile(proc, in, out, 500)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Frames != len(tone) || stats.Channels != 2 || stats.Blocks != 45 {
		t.Errorf("stats = %+v", stats)
	}
	if proc.IsPrepared() {
		t.Error("processor still prepared after render")
	}

	dec := readWAV(t, out)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Data) != 2*len(tone) {
		t.Fatalf("rendered %d samples, want %d", len(buf.Data), 2*len(tone))
	}

	ref := 0.1 / math.Sqrt2
	for ch := range 2 {
		db := 20 * math.Log10(tailRMS(buf.Data, 2, ch, 4410)/ref)
		if math.Abs(db-12) > 0.5 {
			t.Errorf("channel %d gain = %.2f dB, want 12", ch, db)
		}
	}
}

func TestRenderMonoLowCut(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.wav"), filepath.Join(dir, "out.wav")
	writeWAV(t, in, scaled(utils.SineFloat32(50, testSampleRate, testSampleRate), 0.5), 1)

	store := params.NewStore()
	_ = store.Set(params.IDLowCutFreq, 1000)
	_ = store.Set(params.IDLowCutSlope, float64(params.Slope48))

	if _, err := RenderFile(plugin.New(store), in, out, 512); err != nil {
		t.Fatal(err)
	}
	buf, err := readWAV(t, out).FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if db := 20 * math.Log10(tailRMS(buf.Data, 1, 0, 4410)/(0.5/math.Sqrt2)); db > -60 {
		t.Errorf("50 Hz through a 48 dB/oct 1 kHz low cut = %.1f dB", db)
	}
}

func TestRenderEightBitIsUnsigned(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.wav"), filepath.Join(dir, "out.wav")

	// Silence followed by a 1 kHz tone at half scale around the 128 midpoint.
	const frames = 8192
	tone := utils.SineFloat32(1000, testSampleRate, frames)
	data := make([]int, 2*frames)
	for i := range frames {
		data[i] = 128
		data[frames+i] = 128 + int(math.Round(float64(tone[i])*63))
	}
	writePCM(t, in, data, 1, 8)

	stats, err := RenderFile(plugin.New(params.NewStore()), in, out, 512)
	if err != nil {
		t.Fatal(err)
	}
	if stats.BitDepth != 8 {
		t.Fatalf("BitDepth = %d, want 8", stats.BitDepth)
	}

	buf, err := readWAV(t, out).FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Data) != len(data) {
		t.Fatalf("rendered %d samples, want %d", len(buf.Data), len(data))
	}
	for i := frames - 1024; i < frames; i++ {
		if v := buf.Data[i]; v < 127 || v > 129 {
			t.Fatalf("silent sample %d = %d, want about 128", i, v)
		}
	}

	var sum float64
	lo, hi := 255, 0
	for _, v := range buf.Data[2*frames-4410:] {
		lo, hi = min(lo, v), max(hi, v)
		sum += float64(v)
	}
	if mean := sum / 4410; math.Abs(mean-128) > 2 {
		t.Errorf("tone mean = %.1f, want about 128", mean)
	}
	if hi-lo < 110 || hi-lo > 140 {
		t.Errorf("tone swing = %d..%d, want about 65..191", lo, hi)
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	proc := plugin.New(params.NewStore())

	if _, err := RenderFile(proc, junk, filepath.Join(dir, "out.wav"), 512); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("junk input error = %v, want ErrInvalidWAV", err)
	}
	if _, err := RenderFile(proc, filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.wav"), 512); err == nil ||
		!strings.Contains(err.Error(), "failed to open input") {
		t.Errorf("missing input error = %v", err)
	}

	good := filepath.Join(dir, "good.wav")
	writeWAV(t, good, make([]float32, 64), 1)
	if _, err := RenderFile(proc, good, filepath.Join(dir, "out.wav"), 0); err == nil {
		t.Error("zero block size accepted")
	}
}
