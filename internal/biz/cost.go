package biz

import (
	creditErrors "credit-service/internal/errors"
)

// Action 计费动作
type Action string

const (
	ActionChat            Action = "chat"
	ActionImageGenerate   Action = "image-generate"
	ActionImageEdit       Action = "image-edit"
	ActionImageAnalyze    Action = "image-analyze"
	ActionVideoGenerate   Action = "video-generate"
	ActionVideoAnalyze    Action = "video-analyze"
	ActionAudioTranscribe Action = "audio-transcribe"
	ActionSpeechGenerate  Action = "speech-generate"
	ActionWebSearch       Action = "web-search"
)

// Usage describes the size of a paid action, either requested or measured.
type Usage struct {
	Count           int   `json:"count"`
	DurationSeconds int   `json:"duration_seconds"`
	Characters      int   `json:"characters"`
	PromptTokens    int64 `json:"prompt_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
}

// CostTable 动作价格表
type CostTable struct {
	base         map[Action]int64
	videoBuckets []VideoBucket
	promptPer1K  int64
	outputPer1K  int64
}

func NewCostTable(c *CreditConfig) *CostTable {
	t := &CostTable{
		base:         make(map[Action]int64, len(c.Costs)),
		videoBuckets: append([]VideoBucket(nil), c.VideoBuckets...),
		promptPer1K:  c.ChatPromptPer1K,
		outputPer1K:  c.ChatOutputPer1K,
	}
	for a, cost := range c.Costs {
		t.base[a] = cost
	}
	return t
}

// Estimate is the worst-case cost charged against the balance pre-check.
func (t *CostTable) Estimate(action Action, u Usage) (int64, error) {
	switch action {
	case ActionVideoGenerate:
		return t.videoCost(u.DurationSeconds)
	case ActionImageGenerate, ActionImageEdit:
		base, err := t.baseCost(action)
		if err != nil {
			return 0, err
		}
		return base * int64(atLeastOne(u.Count)), nil
	case ActionAudioTranscribe:
		base, err := t.baseCost(action)
		if err != nil {
			return 0, err
		}
		return base * ceilDiv(int64(u.DurationSeconds), 60), nil
	case ActionSpeechGenerate:
		base, err := t.baseCost(action)
		if err != nil {
			return 0, err
		}
		return base * ceilDiv(int64(u.Characters), 1000), nil
	default:
		return t.baseCost(action)
	}
}

// Realize prices an action from measured usage. Chat is billed by tokens;
// everything else costs what it was estimated at.
func (t *CostTable) Realize(action Action, u Usage) (int64, error) {
	if action == ActionChat && (u.PromptTokens > 0 || u.OutputTokens > 0) {
		return t.ChatCost(u.PromptTokens, u.OutputTokens), nil
	}
	return t.Estimate(action, u)
}

// ChatCost = ceil((prompt*promptPer1K + output*outputPer1K) / 1000).
func (t *CostTable) ChatCost(promptTokens, outputTokens int64) int64 {
	if promptTokens < 0 {
		promptTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	total := promptTokens*t.promptPer1K + outputTokens*t.outputPer1K
	if total == 0 {
		return 0
	}
	return (total + 999) / 1000
}

func (t *CostTable) baseCost(action Action) (int64, error) {
	cost, ok := t.base[action]
	if !ok {
		return 0, creditErrors.UnknownAction(string(action))
	}
	return cost, nil
}

func (t *CostTable) videoCost(seconds int) (int64, error) {
	if len(t.videoBuckets) == 0 {
		return 0, creditErrors.UnknownAction(string(ActionVideoGenerate))
	}
	for _, b := range t.videoBuckets {
		if seconds <= b.MaxSeconds {
			return b.Cost, nil
		}
	}
	return 0, creditErrors.UnknownAction(string(ActionVideoGenerate)).WithMetadata(map[string]string{
		"reason": "duration exceeds the longest bucket",
	})
}

func ceilDiv(n, d int64) int64 {
	if n <= 0 {
		return 1
	}
	return (n + d - 1) / d
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
