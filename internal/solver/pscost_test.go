package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPseudoCosts(t *testing.T) {
	p := newPseudoCosts(2)

	// no history yet
	assert.Equal(t, 0.5, p.value(0, -0.5))
	assert.Equal(t, 0.0, p.count(0, false))

	p.update(0, -0.5, 2, 1)
	p.update(0, 0.25, 1, 0.5)
	assert.Equal(t, 1.0, p.count(0, false))
	assert.Equal(t, 0.5, p.count(0, true))
	assert.InDelta(t, 4*0.25, p.value(0, -0.25), 1e-12)

	// variables without history fall back to the average
	assert.InDelta(t, p.value(0, -1), p.value(1, -1), 1e-12)

	p.grow(4)
	assert.Equal(t, 0.0, p.count(3, true))
	assert.Equal(t, 0.0, p.count(9, true))

	p.incCutoffs(5, true)
	p.incCutoffs(5, true)
	p.incCutoffs(5, false)
	assert.Equal(t, int64(2), p.cutoffUp[5])
	assert.Equal(t, int64(1), p.cutoffDown[5])
}
