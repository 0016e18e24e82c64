package audio

import (
	"math"
	"time"
)

// Tone synthesizes a mono sine tone as signed 16-bit PCM at SampleRate.
// Short attack and release ramps keep the edges click-free. Volume is a
// linear gain in (0, 1]. Invalid parameters yield an empty slice.
func Tone(frequencyHz float64, d time.Duration, volume float64) []int16 {
	n := SamplesFor(d)
	if n <= 0 || frequencyHz <= 0 || volume <= 0 {
		return nil
	}

	ramp := n / 10
	maxRamp := SampleRate / 200 // 5ms
	if ramp > maxRamp {
		ramp = maxRamp
	}
	if ramp < 1 {
		ramp = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		tail := n - i - 1
		if tail < ramp {
			release := float64(tail) / float64(ramp)
			if release < envelope {
				envelope = release
			}
		}
		t := float64(i) / SampleRate
		sample := math.Sin(2 * math.Pi * frequencyHz * t)
		pcm[i] = int16(math.Round(sample * volume * envelope * 32767))
	}

	return pcm
}

// Silence returns d worth of zero samples.
func Silence(d time.Duration) []int16 {
	n := SamplesFor(d)
	if n <= 0 {
		return nil
	}
	return make([]int16, n)
}

// SamplesFor converts a duration to a sample count at SampleRate.
func SamplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * SampleRate))
}
