// Package output copies finished narration text to the clipboard so the
// user can paste the answer into another application.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/echosight/internal/config"
)

// clipboardTimeout bounds the external clipboard command.
const clipboardTimeout = 2 * time.Second

// Committer writes narration text to the clipboard, preferring a configured
// external command and falling back to the platform clipboard directly.
type Committer struct {
	argv   []string
	logger *slog.Logger

	// writeAll is swapped in tests.
	writeAll func(text string) error
}

// NewCommitter constructs a committer from the clipboard configuration.
func NewCommitter(cmd config.CommandConfig, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Committer{argv: cmd.Argv, logger: logger, writeAll: clipboard.WriteAll}
}

// Commit places text on the clipboard. Empty text is a no-op.
func (c *Committer) Commit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if len(c.argv) > 0 {
		runCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
		defer cancel()
		if err := runWithInput(runCtx, c.argv, text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		return nil
	}

	if err := c.writeAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// runWithInput executes argv and writes input to its stdin.
func runWithInput(ctx context.Context, argv []string, input string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if _, err := stdin.Write([]byte(input)); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write stdin for %s: %w", argv[0], err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
