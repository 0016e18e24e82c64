package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Inference *jsoncInference `json:"inference"`
	Speech    *jsoncSpeech    `json:"speech"`
	Dictation *jsoncDictation `json:"dictation"`
	Indicator *jsoncIndicator `json:"indicator"`
	Admission *jsoncAdmission `json:"admission"`

	CaptureCmd   *string          `json:"capture_cmd"`
	ClipboardCmd *string          `json:"clipboard_cmd"`
	Credential   *jsoncCredential `json:"credential"`
}

type jsoncInference struct {
	Model           *string `json:"model"`
	BaseURL         *string `json:"base_url"`
	DescribePrompt  *string `json:"describe_prompt"`
	FollowUpPreface *string `json:"follow_up_preface"`
	MaxOutputTokens *int    `json:"max_output_tokens"`
}

type jsoncSpeech struct {
	SynthFileCmd        *string  `json:"synth_file_cmd"`
	PlayCmd             *string  `json:"play_cmd"`
	ScriptCmd           *string  `json:"script_cmd"`
	SayCmd              *string  `json:"say_cmd"`
	FallbackPlaySeconds *float64 `json:"fallback_play_seconds"`
	PlayGuardMS         *int     `json:"play_guard_ms"`
}

type jsoncDictation struct {
	TranscribeCmd *string `json:"transcribe_cmd"`
	MaxSeconds    *int    `json:"max_seconds"`
	ChunkSeconds  *int    `json:"chunk_seconds"`
}

type jsoncIndicator struct {
	Enable             *bool   `json:"enable"`
	SoundEnable        *bool   `json:"sound_enable"`
	DesktopAppName     *string `json:"desktop_app_name"`
	ErrorTimeoutMS     *int    `json:"error_timeout_ms"`
	ProgressIntervalMS *int    `json:"progress_interval_ms"`
}

type jsoncAdmission struct {
	TimeoutMS *int `json:"timeout_ms"`
}

type jsoncCredential struct {
	Path    *string `json:"path"`
	EnvFile *string `json:"env_file"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if payload.Inference != nil {
		if payload.Inference.Model != nil {
			cfg.Inference.Model = strings.TrimSpace(*payload.Inference.Model)
		}
		if payload.Inference.BaseURL != nil {
			cfg.Inference.BaseURL = strings.TrimSpace(*payload.Inference.BaseURL)
		}
		if payload.Inference.DescribePrompt != nil {
			cfg.Inference.DescribePrompt = *payload.Inference.DescribePrompt
		}
		if payload.Inference.FollowUpPreface != nil {
			cfg.Inference.FollowUpPreface = *payload.Inference.FollowUpPreface
		}
		if payload.Inference.MaxOutputTokens != nil {
			cfg.Inference.MaxOutputTokens = *payload.Inference.MaxOutputTokens
		}
	}

	if payload.Speech != nil {
		if err := applyCommand(payload.Speech.SynthFileCmd, "speech.synth_file_cmd", &cfg.Speech.SynthFileCmd); err != nil {
			return err
		}
		if err := applyCommand(payload.Speech.PlayCmd, "speech.play_cmd", &cfg.Speech.PlayCmd); err != nil {
			return err
		}
		if err := applyCommand(payload.Speech.ScriptCmd, "speech.script_cmd", &cfg.Speech.ScriptCmd); err != nil {
			return err
		}
		if err := applyCommand(payload.Speech.SayCmd, "speech.say_cmd", &cfg.Speech.SayCmd); err != nil {
			return err
		}
		if payload.Speech.FallbackPlaySeconds != nil {
			cfg.Speech.FallbackPlaySeconds = *payload.Speech.FallbackPlaySeconds
		}
		if payload.Speech.PlayGuardMS != nil {
			cfg.Speech.PlayGuardMS = *payload.Speech.PlayGuardMS
		}
	}

	if payload.Dictation != nil {
		if err := applyCommand(payload.Dictation.TranscribeCmd, "dictation.transcribe_cmd", &cfg.Dictation.TranscribeCmd); err != nil {
			return err
		}
		if payload.Dictation.MaxSeconds != nil {
			cfg.Dictation.MaxSeconds = *payload.Dictation.MaxSeconds
		}
		if payload.Dictation.ChunkSeconds != nil {
			cfg.Dictation.ChunkSeconds = *payload.Dictation.ChunkSeconds
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
		if payload.Indicator.ProgressIntervalMS != nil {
			cfg.Indicator.ProgressIntervalMS = *payload.Indicator.ProgressIntervalMS
		}
	}

	if payload.Admission != nil && payload.Admission.TimeoutMS != nil {
		cfg.Admission.TimeoutMS = *payload.Admission.TimeoutMS
	}

	if err := applyCommand(payload.CaptureCmd, "capture_cmd", &cfg.Capture); err != nil {
		return err
	}
	if err := applyCommand(payload.ClipboardCmd, "clipboard_cmd", &cfg.Clipboard); err != nil {
		return err
	}

	if payload.Credential != nil {
		if payload.Credential.Path != nil {
			cfg.Credential.Path = strings.TrimSpace(*payload.Credential.Path)
		}
		if payload.Credential.EnvFile != nil {
			cfg.Credential.EnvFile = strings.TrimSpace(*payload.Credential.EnvFile)
		}
	}

	return nil
}

func applyCommand(raw *string, key string, target *CommandConfig) error {
	if raw == nil {
		return nil
	}
	argv, err := parseArgv(*raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = CommandConfig{Raw: *raw, Argv: argv}
	return nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
