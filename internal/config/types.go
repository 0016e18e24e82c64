// Package config resolves, parses, validates, and defaults echosight configuration.
package config

// Config is the fully materialized runtime configuration used by echosight.
type Config struct {
	Inference  InferenceConfig
	Capture    CommandConfig
	Speech     SpeechConfig
	Dictation  DictationConfig
	Indicator  IndicatorConfig
	Clipboard  CommandConfig
	Credential CredentialConfig
	Admission  AdmissionConfig
}

// InferenceConfig controls the remote vision model request.
type InferenceConfig struct {
	Model           string
	BaseURL         string
	DescribePrompt  string
	FollowUpPreface string
	MaxOutputTokens int
}

// SpeechConfig controls the narration backend chain.
//
// SynthFileCmd renders stdin text to a WAV at the {out} placeholder path.
// PlayCmd plays a rendered WAV file given as its final argument.
// ScriptCmd is a persistent helper that speaks stdin text.
// SayCmd is a one-shot speech command that speaks stdin text.
type SpeechConfig struct {
	SynthFileCmd        CommandConfig
	PlayCmd             CommandConfig
	ScriptCmd           CommandConfig
	SayCmd              CommandConfig
	FallbackPlaySeconds float64
	PlayGuardMS         int
}

// DictationConfig controls chunked follow-up recording.
//
// TranscribeCmd runs one bounded transcription attempt; the {seconds}
// placeholder receives the chunk duration and the transcript is read from
// stdout.
type DictationConfig struct {
	TranscribeCmd CommandConfig
	MaxSeconds    int
	ChunkSeconds  int
}

// IndicatorConfig controls audio cues and desktop notifications.
type IndicatorConfig struct {
	Enable             bool
	SoundEnable        bool
	DesktopAppName     string
	ErrorTimeoutMS     int
	ProgressIntervalMS int
}

// CredentialConfig controls encrypted API key storage.
type CredentialConfig struct {
	Path    string
	EnvFile string
}

// AdmissionConfig controls task gate timing.
type AdmissionConfig struct {
	TimeoutMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
