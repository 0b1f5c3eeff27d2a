package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest_TypoCorrection(t *testing.T) {
	s := NewSuggester()
	vocab := []string{"coordinator", "container", "configure", "unrelated"}

	got := s.Suggest("coordnator", vocab)
	assert.Contains(t, got, "coordinator")
	assert.NotContains(t, got, "unrelated")
}

func TestSuggest_StemMatches(t *testing.T) {
	s := NewSuggester()
	vocab := []string{"searching", "searched", "banana"}

	got := s.Suggest("searches", vocab)
	assert.Contains(t, got, "searching")
	assert.Contains(t, got, "searched")
	assert.NotContains(t, got, "banana")
}

func TestSuggest_ExactTermExcluded(t *testing.T) {
	s := NewSuggester()
	got := s.Suggest("index", []string{"index", "indexes"})
	assert.NotContains(t, got, "index", "the queried term itself is never suggested")
	assert.Contains(t, got, "indexes")
}

func TestSuggest_EmptyInputs(t *testing.T) {
	s := NewSuggester()
	assert.Nil(t, s.Suggest("", []string{"term"}))
	assert.Nil(t, s.Suggest("term", nil))
}

func TestSuggest_CapsAtFive(t *testing.T) {
	s := NewSuggester()
	vocab := []string{
		"handler1", "handler2", "handler3",
		"handler4", "handler5", "handler6", "handler7",
	}

	got := s.Suggest("handler0", vocab)
	assert.LessOrEqual(t, len(got), 5)
}

func TestSuggest_Deterministic(t *testing.T) {
	s := NewSuggester()
	vocab := []string{"zeta_handler", "beta_handler", "alpha_handler"}

	first := s.Suggest("gamma_handler", vocab)
	second := s.Suggest("gamma_handler", vocab)
	assert.Equal(t, first, second)
}
