package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizroom/quiz-services/internal/scoresvc/apperr"
)

func TestParseKindsSingle(t *testing.T) {
	kinds, err := ParseKinds("today_total")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindTodayTotal}, kinds)
}

func TestParseKindsCommaSeparated(t *testing.T) {
	kinds, err := ParseKinds("round,round_max, round_latest")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindRound, KindRoundMax, KindRoundLatest}, kinds)
}

func TestParseKindsDeduplicates(t *testing.T) {
	kinds, err := ParseKinds("round,round,today_total")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindRound, KindTodayTotal}, kinds)
}

func TestParseKindsUnknownValue(t *testing.T) {
	_, err := ParseKinds("today_total,bogus")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestParseKindsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		_, err := ParseKinds(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}
}
