package segment

import (
	"encoding/binary"
	"math"
)

// EnergyGate classifies chunks as speech or ambient noise. A chunk counts as
// speech when its RMS exceeds max(staticFloor, movingAverage*multiplier);
// the moving average tracks ambient energy so the gate adapts to microphone
// gain and room noise without manual tuning.
type EnergyGate struct {
	floor      float64
	multiplier float64
	alpha      float64

	avg    float64
	primed bool
}

func NewEnergyGate(floor, multiplier, alpha float64) *EnergyGate {
	return &EnergyGate{floor: floor, multiplier: multiplier, alpha: alpha}
}

// RMS computes the root-mean-square energy of 16-bit little-endian PCM,
// normalized to [0, 1].
func RMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(pcm)/2))
}

// Speech reports whether the chunk carries speech and folds ambient chunks
// into the moving average. Speech chunks are excluded from the average so
// sustained talking does not raise the gate on itself.
func (g *EnergyGate) Speech(pcm []byte) bool {
	rms := RMS(pcm)

	threshold := g.floor
	if g.primed {
		if adaptive := g.avg * g.multiplier; adaptive > threshold {
			threshold = adaptive
		}
	}
	speech := rms > threshold

	if !g.primed {
		g.avg = rms
		g.primed = true
	} else if !speech {
		g.avg = g.avg*(1-g.alpha) + rms*g.alpha
	}
	return speech
}

// Ambient returns the current moving-average ambient energy estimate.
func (g *EnergyGate) Ambient() float64 {
	return g.avg
}
