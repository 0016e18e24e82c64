package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Inference.Model) == "" {
		return nil, fmt.Errorf("inference.model must not be empty")
	}
	if strings.TrimSpace(cfg.Inference.DescribePrompt) == "" {
		return nil, fmt.Errorf("inference.describe_prompt must not be empty")
	}
	if cfg.Inference.MaxOutputTokens <= 0 {
		return nil, fmt.Errorf("inference.max_output_tokens must be > 0")
	}

	if len(cfg.Capture.Argv) == 0 {
		return nil, fmt.Errorf("capture_cmd must not be empty")
	}

	if len(cfg.Speech.SayCmd.Argv) == 0 {
		return nil, fmt.Errorf("speech.say_cmd must not be empty")
	}
	if cfg.Speech.SynthFileCmd.Raw != "" {
		if len(cfg.Speech.SynthFileCmd.Argv) == 0 {
			return nil, fmt.Errorf("speech.synth_file_cmd is configured but empty")
		}
		if !strings.Contains(cfg.Speech.SynthFileCmd.Raw, "{out}") {
			warnings = append(warnings, Warning{
				Message: "speech.synth_file_cmd has no {out} placeholder; rendered file path is appended as the last argument",
			})
		}
		if len(cfg.Speech.PlayCmd.Argv) == 0 {
			return nil, fmt.Errorf("speech.play_cmd must not be empty when speech.synth_file_cmd is set")
		}
	}
	if cfg.Speech.FallbackPlaySeconds <= 0 {
		return nil, fmt.Errorf("speech.fallback_play_seconds must be > 0")
	}
	if cfg.Speech.PlayGuardMS < 0 {
		return nil, fmt.Errorf("speech.play_guard_ms must be >= 0")
	}

	if len(cfg.Dictation.TranscribeCmd.Argv) == 0 {
		return nil, fmt.Errorf("dictation.transcribe_cmd must not be empty")
	}
	if !strings.Contains(cfg.Dictation.TranscribeCmd.Raw, "{seconds}") {
		warnings = append(warnings, Warning{
			Message: "dictation.transcribe_cmd has no {seconds} placeholder; chunk duration is not passed to the transcriber",
		})
	}
	if cfg.Dictation.MaxSeconds <= 0 {
		return nil, fmt.Errorf("dictation.max_seconds must be > 0")
	}
	if cfg.Dictation.ChunkSeconds <= 0 {
		return nil, fmt.Errorf("dictation.chunk_seconds must be > 0")
	}

	if strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Indicator.ProgressIntervalMS <= 0 {
		return nil, fmt.Errorf("indicator.progress_interval_ms must be > 0")
	}

	if cfg.Admission.TimeoutMS < 0 {
		return nil, fmt.Errorf("admission.timeout_ms must be >= 0")
	}

	return warnings, nil
}
