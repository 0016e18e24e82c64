// Package audio handles Pulse device discovery and synchronous PCM playback.
package audio

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// SampleRate is the mono s16 sample rate used for all in-process playback.
const SampleRate = 16000

// Device describes one Pulse device surfaced to diagnostics output.
type Device struct {
	ID          string
	Description string
	State       string
	Kind        string
	Muted       bool
	Default     bool
}

// ListDevices returns available Pulse sinks and sources with default and mute
// metadata. Sinks matter for narration output, sources for dictation input.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	devices := make([]Device, 0, 8)

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	var sinkInfos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinkInfos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}
	for _, sink := range sinkInfos {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          sink.SinkName,
			Description: sink.Device,
			State:       sinkStateString(sink.State),
			Kind:        "sink",
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultSink.ID(),
		})
	}

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Kind:        "source",
			Muted:       source.Mute,
			Default:     source.SourceName == defaultSource.ID(),
		})
	}

	return devices, nil
}

// PlayPCM plays mono s16 samples through the default Pulse sink, blocking
// until the stream drains.
func PlayPCM(samples []int16, mediaName string) error {
	if len(samples) == 0 {
		return nil
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(SampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return nil
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("echosight"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

func sinkStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return "unknown"
	}
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return "unknown"
	}
}
