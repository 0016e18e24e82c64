package indicator

import (
	"time"

	"github.com/rbright/echosight/internal/audio"
)

type cueKind int

const (
	cueAdmit cueKind = iota + 1
	cueDeny
	cueComplete
	cueCancel
	cueError
	cueListen
	cueSubmit
	cueStop
	cueTick
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// Cue tone patterns. Rising pairs signal acceptance and progress, falling
// pairs signal rejection and errors, matching the pitch conventions screen
// reader users already know.
var (
	admitCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 740, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 900, duration: 70 * time.Millisecond, volume: 0.18},
	})
	denyCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 420, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 380, duration: 90 * time.Millisecond, volume: 0.18},
	})
	completeCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 1250, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1500, duration: 120 * time.Millisecond, volume: 0.18},
	})
	cancelCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 460, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 390, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 320, duration: 110 * time.Millisecond, volume: 0.18},
	})
	errorCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 420, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 380, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 340, duration: 90 * time.Millisecond, volume: 0.18},
	})
	listenCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 1320, duration: 140 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1560, duration: 170 * time.Millisecond, volume: 0.18},
	})
	submitCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 980, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1180, duration: 110 * time.Millisecond, volume: 0.18},
	})
	stopCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 500, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 420, duration: 90 * time.Millisecond, volume: 0.18},
	})
	tickCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 980, duration: 70 * time.Millisecond, volume: 0.12},
	})
)

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cueAdmit:
		return admitCuePCM
	case cueDeny:
		return denyCuePCM
	case cueComplete:
		return completeCuePCM
	case cueCancel:
		return cancelCuePCM
	case cueError:
		return errorCuePCM
	case cueListen:
		return listenCuePCM
	case cueSubmit:
		return submitCuePCM
	case cueStop:
		return stopCuePCM
	case cueTick:
		return tickCuePCM
	default:
		return nil
	}
}

func synthesizeCue(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gap := audio.Silence(22 * time.Millisecond)

	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, audio.Tone(part.frequencyHz, part.duration, part.volume)...)
		if i < len(parts)-1 {
			pcm = append(pcm, gap...)
		}
	}

	return pcm
}
