package segment

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmConst(amplitude int16, samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(amplitude))
	}
	return pcm
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
	if got := RMS(make([]byte, 320)); got != 0 {
		t.Errorf("RMS(zeros) = %f, want 0", got)
	}
	got := RMS(pcmConst(16384, 160))
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS(half scale) = %f, want 0.5", got)
	}
}

func TestGateStaticFloor(t *testing.T) {
	g := NewEnergyGate(0.01, 2.0, 0.5)
	if g.Speech(make([]byte, 320)) {
		t.Error("silence classified as speech")
	}
	if !g.Speech(pcmConst(1600, 160)) { // ~0.049, well above floor
		t.Error("loud chunk not classified as speech")
	}
}

func TestGateAdaptsToAmbientNoise(t *testing.T) {
	// Borderline chunk: ~0.015 RMS, above the static floor.
	borderline := pcmConst(491, 160)

	// Quiet room: passes on the static floor alone.
	quiet := NewEnergyGate(0.01, 2.0, 0.5)
	quiet.Speech(make([]byte, 320))
	if !quiet.Speech(borderline) {
		t.Error("borderline chunk should be speech against a silent room")
	}

	// Noisy room: sustained ~0.008 ambience lifts the adaptive threshold to
	// ~0.016 and the same chunk is rejected.
	noisy := NewEnergyGate(0.01, 2.0, 0.5)
	noise := pcmConst(262, 160)
	for i := 0; i < 10; i++ {
		if noisy.Speech(noise) {
			t.Fatal("ambient noise classified as speech")
		}
	}
	if noisy.Speech(borderline) {
		t.Error("borderline chunk should be rejected against noisy ambience")
	}
}

func TestGateSpeechExcludedFromAverage(t *testing.T) {
	g := NewEnergyGate(0.01, 2.0, 0.5)
	g.Speech(make([]byte, 320))
	ambientBefore := g.Ambient()
	for i := 0; i < 20; i++ {
		if !g.Speech(pcmConst(3200, 160)) {
			t.Fatal("sustained speech lost by gate")
		}
	}
	if g.Ambient() != ambientBefore {
		t.Errorf("speech chunks moved the ambient average: %f -> %f", ambientBefore, g.Ambient())
	}
}
