package biz

import (
	"testing"

	creditErrors "credit-service/internal/errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	costs := NewCostTable(DefaultCreditConfig())
	cases := []struct {
		action Action
		usage  Usage
		want   int64
	}{
		{ActionChat, Usage{}, 30},
		{ActionImageGenerate, Usage{}, 600},
		{ActionImageGenerate, Usage{Count: 3}, 1800},
		{ActionImageEdit, Usage{Count: 1}, 600},
		{ActionImageAnalyze, Usage{}, 100},
		{ActionVideoGenerate, Usage{DurationSeconds: 4}, 3000},
		{ActionVideoGenerate, Usage{DurationSeconds: 5}, 3000},
		{ActionVideoGenerate, Usage{DurationSeconds: 6}, 4000},
		{ActionVideoGenerate, Usage{DurationSeconds: 8}, 6000},
		{ActionVideoGenerate, Usage{DurationSeconds: 12}, 12000},
		{ActionVideoAnalyze, Usage{}, 500},
		{ActionAudioTranscribe, Usage{DurationSeconds: 30}, 300},
		{ActionAudioTranscribe, Usage{DurationSeconds: 61}, 600},
		{ActionSpeechGenerate, Usage{Characters: 999}, 120},
		{ActionSpeechGenerate, Usage{Characters: 2500}, 360},
		{ActionWebSearch, Usage{}, 150},
	}
	for _, tc := range cases {
		got, err := costs.Estimate(tc.action, tc.usage)
		require.NoError(t, err, tc.action)
		assert.Equal(t, tc.want, got, "%s %+v", tc.action, tc.usage)
	}
}

func TestEstimateErrors(t *testing.T) {
	costs := NewCostTable(DefaultCreditConfig())
	_, err := costs.Estimate(Action("teleport"), Usage{})
	assert.True(t, errors.Is(err, creditErrors.ErrUnknownAction))
	_, err = costs.Estimate(ActionVideoGenerate, Usage{DurationSeconds: 60})
	assert.True(t, errors.Is(err, creditErrors.ErrUnknownAction))
}

func TestChatCost(t *testing.T) {
	costs := NewCostTable(DefaultCreditConfig())
	assert.Equal(t, int64(0), costs.ChatCost(0, 0))
	assert.Equal(t, int64(1), costs.ChatCost(1, 0))
	assert.Equal(t, int64(10), costs.ChatCost(1000, 0))
	assert.Equal(t, int64(30), costs.ChatCost(0, 1000))
	assert.Equal(t, int64(36), costs.ChatCost(1200, 800))

	realized, err := costs.Realize(ActionChat, Usage{})
	require.NoError(t, err)
	assert.Equal(t, int64(30), realized)
}
