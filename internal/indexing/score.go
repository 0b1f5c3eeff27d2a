package indexing

import (
	"github.com/prism-search/prism/internal/types"
)

// BaseScore computes a line's intrinsic salience in [0,1] from its
// language and length: short lines in code languages score highest.
// Deterministic by construction; postings carry this value pre-computed.
func BaseScore(language string, lineLength int) float64 {
	if lineLength < 1 {
		lineLength = 1
	}

	lengthFactor := float64(types.ShortLineLength) / float64(lineLength)
	if lengthFactor > 1 {
		lengthFactor = 1
	}

	return 0.5*LanguageWeight(language) + 0.5*lengthFactor
}

// ClampScore bounds a final score to [0,1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
