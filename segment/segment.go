// Package segment turns the raw capture stream into bounded, overlapping
// audio segments sized for one transcription request each.
package segment

import "time"

type FlushReason int

const (
	ReasonRollingInterval FlushReason = iota
	ReasonSilenceTimeout
	ReasonOverflowProtection
	ReasonQueuePressure
	ReasonStreamEnd
)

func (r FlushReason) String() string {
	switch r {
	case ReasonRollingInterval:
		return "rolling-interval"
	case ReasonSilenceTimeout:
		return "silence-timeout"
	case ReasonOverflowProtection:
		return "overflow-protection"
	case ReasonQueuePressure:
		return "queue-pressure"
	case ReasonStreamEnd:
		return "stream-end"
	}
	return "unknown"
}

// Segment is one bounded span of 16-bit mono PCM handed to the transcription
// pool as a unit. Overlap is the leading slice duplicated from the previous
// segment's tail so no words are lost at the boundary; the duplicate text it
// produces is removed again by reconciliation.
type Segment struct {
	PCM      []byte
	Duration time.Duration
	Reason   FlushReason
	Overlap  time.Duration
}
