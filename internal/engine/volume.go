package engine

import "math"

// silentVolume is the beep volume used for level 0.
const silentVolume = -10

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale where Volume is in "decibels" with base 2.
// Volume = 0 means no change, -1 = half volume, -2 = quarter, etc.
// We map: 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return silentVolume
	}
	if level >= 1 {
		return 0
	}
	return math.Max(math.Log2(level), silentVolume)
}
