package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeCueInsertsGaps(t *testing.T) {
	single := synthesizeCue([]toneSpec{
		{frequencyHz: 740, duration: 60 * time.Millisecond, volume: 0.18},
	})
	pair := synthesizeCue([]toneSpec{
		{frequencyHz: 740, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 900, duration: 60 * time.Millisecond, volume: 0.18},
	})
	assert.Greater(t, len(pair), 2*len(single))
}

func TestSynthesizeCueEmpty(t *testing.T) {
	assert.Empty(t, synthesizeCue(nil))
}

func TestCueSamplesCoversAllKinds(t *testing.T) {
	kinds := []cueKind{cueAdmit, cueDeny, cueComplete, cueCancel, cueError, cueListen, cueSubmit, cueStop, cueTick}
	for _, kind := range kinds {
		assert.NotEmpty(t, cueSamples(kind))
	}
}
