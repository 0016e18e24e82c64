// Package capture grabs the current screen contents as an image. The
// mechanism is a thin external command; any failure is reported to the
// caller and narrated there as a non-fatal error.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/echosight/internal/config"
)

// captureTimeout bounds the screenshot command. A screenshot that takes
// longer than this is treated as failed.
const captureTimeout = 10 * time.Second

// Provider produces one screenshot per call.
type Provider interface {
	Capture(ctx context.Context) ([]byte, error)
}

// ExecProvider runs the configured screenshot command and reads the encoded
// image from its stdout.
type ExecProvider struct {
	argv []string
}

// NewExecProvider builds a provider from the configured capture command.
func NewExecProvider(cmd config.CommandConfig) *ExecProvider {
	return &ExecProvider{argv: cmd.Argv}
}

// Capture runs the screenshot command once and returns the image bytes.
func (p *ExecProvider) Capture(ctx context.Context) ([]byte, error) {
	if len(p.argv) == 0 {
		return nil, fmt.Errorf("capture command not configured")
	}

	runCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.argv[0], p.argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("capture with %s: %w (stderr: %s)", p.argv[0], err, detail)
		}
		return nil, fmt.Errorf("capture with %s: %w", p.argv[0], err)
	}

	image := stdout.Bytes()
	if len(image) == 0 {
		return nil, fmt.Errorf("capture with %s produced no image data", p.argv[0])
	}
	return image, nil
}
