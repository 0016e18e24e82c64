package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbright/echosight/internal/config"
)

func TestCommitPipesTextToConfiguredCommand(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "clip.txt")
	committer := NewCommitter(config.CommandConfig{Argv: []string{"sh", "-c", "cat > " + sink}}, nil)

	require.NoError(t, committer.Commit(context.Background(), "the answer"))

	data, err := os.ReadFile(sink)
	require.NoError(t, err)
	assert.Equal(t, "the answer", string(data))
}

func TestCommitEmptyTextIsNoOp(t *testing.T) {
	committer := NewCommitter(config.CommandConfig{Argv: []string{"false"}}, nil)
	assert.NoError(t, committer.Commit(context.Background(), ""))
}

func TestCommitConfiguredCommandFailure(t *testing.T) {
	committer := NewCommitter(config.CommandConfig{Argv: []string{"sh", "-c", "cat > /dev/null; exit 1"}}, nil)
	assert.Error(t, committer.Commit(context.Background(), "the answer"))
}

func TestCommitFallsBackToPlatformClipboard(t *testing.T) {
	var written string
	committer := NewCommitter(config.CommandConfig{}, nil)
	committer.writeAll = func(text string) error {
		written = text
		return nil
	}

	require.NoError(t, committer.Commit(context.Background(), "the answer"))
	assert.Equal(t, "the answer", written)
}
