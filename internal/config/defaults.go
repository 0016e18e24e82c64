package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	capture := "grim -"
	synth := "piper --output-file {out}"
	play := "pw-play"
	say := "espeak-ng"
	transcribe := "vosk-transcriber --seconds {seconds}"

	return Config{
		Inference: InferenceConfig{
			Model:          "gpt-4o-mini",
			DescribePrompt: "Describe this screenshot for a blind user.",
			FollowUpPreface: "You are assisting a blind user. " +
				"Answer the user's question using only this screenshot. " +
				"Be clear, concise, and practical.",
			MaxOutputTokens: 1024,
		},
		Capture: CommandConfig{Raw: capture, Argv: mustParseArgv(capture)},
		Speech: SpeechConfig{
			SynthFileCmd:        CommandConfig{Raw: synth, Argv: mustParseArgv(synth)},
			PlayCmd:             CommandConfig{Raw: play, Argv: mustParseArgv(play)},
			ScriptCmd:           CommandConfig{},
			SayCmd:              CommandConfig{Raw: say, Argv: mustParseArgv(say)},
			FallbackPlaySeconds: 8,
			PlayGuardMS:         150,
		},
		Dictation: DictationConfig{
			TranscribeCmd: CommandConfig{Raw: transcribe, Argv: mustParseArgv(transcribe)},
			MaxSeconds:    30,
			ChunkSeconds:  3,
		},
		Indicator: IndicatorConfig{
			Enable:             true,
			SoundEnable:        true,
			DesktopAppName:     "echosight",
			ErrorTimeoutMS:     1600,
			ProgressIntervalMS: 1200,
		},
		Clipboard:  CommandConfig{},
		Credential: CredentialConfig{},
		Admission:  AdmissionConfig{TimeoutMS: 800},
	}
}
