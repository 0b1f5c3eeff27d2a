package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseScore_ShortCodeLineIsMax(t *testing.T) {
	assert.Equal(t, 1.0, BaseScore("go", 10))
	assert.Equal(t, 1.0, BaseScore("go", 20))
}

func TestBaseScore_LongLinesScoreLower(t *testing.T) {
	short := BaseScore("go", 20)
	long := BaseScore("go", 200)
	assert.Greater(t, short, long)
	assert.InDelta(t, 0.55, long, 1e-9)
}

func TestBaseScore_LanguageWeightsOrdered(t *testing.T) {
	code := BaseScore("go", 40)
	markup := BaseScore("markdown", 40)
	other := BaseScore("", 40)

	assert.Greater(t, code, markup)
	assert.Greater(t, markup, other)
}

func TestBaseScore_ZeroLengthDoesNotPanic(t *testing.T) {
	assert.Equal(t, 1.0, BaseScore("go", 0))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-0.1))
	assert.Equal(t, 1.0, ClampScore(1.3))
	assert.Equal(t, 0.42, ClampScore(0.42))
}
