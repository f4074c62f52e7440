package logging

import (
	"fmt"
	"math"
	"strconv"
)

// MissingValue is printed where no measurement exists.
const MissingValue = "-"

// FullScale is the largest S16 peak magnitude.
const FullScale = 32767

// SilenceValue is shown for a peak of zero, which has no dBFS level.
const SilenceValue = "silence"

// PeakDBFS converts an S16 peak magnitude to dB relative to full scale.
// A zero peak returns -Inf.
func PeakDBFS(p uint32) float64 {
	if p == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(p)/FullScale)
}

func formatPeakDBFS(p uint32, decimals int) string {
	if p == 0 {
		return SilenceValue
	}
	return formatFloat(PeakDBFS(p), decimals)
}

// formatFloat prints v with fixed decimals, or MissingValue for NaN and Inf.
func formatFloat(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingValue
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// formatStep prints a volume step with its sign, "+0" included.
func formatStep(v int64) string {
	return fmt.Sprintf("%+d", v)
}

func formatCount(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// formatShare prints part as a percentage of whole, or "" when whole is zero.
func formatShare(part, whole uint64) string {
	if whole == 0 {
		return ""
	}
	return formatFloat(100*float64(part)/float64(whole), 1) + "%"
}
