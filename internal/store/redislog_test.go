package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kaname-hf/vgcsolver/internal/decision"
)

func TestDisabledRedisLoggerDropsRecords(t *testing.T) {
	l := NewRedisLogger("", nil)
	assert.NotPanics(t, func() {
		l.LogDecision(decision.Record{DecisionID: "d1", Turn: 4})
	})
	assert.NoError(t, l.Close())
}
