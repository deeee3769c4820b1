package biz

import (
	"sort"
	"time"

	"credit-service/internal/conf"
	"credit-service/internal/constants"
)

// CreditConfig 积分配置
type CreditConfig struct {
	Allowances      map[Tier]int64
	PlanRefs        map[string]Tier
	Costs           map[Action]int64
	VideoBuckets    []VideoBucket
	ChatPromptPer1K int64
	ChatOutputPer1K int64
	Period          time.Duration
}

// VideoBucket prices a video request whose duration is at most MaxSeconds.
type VideoBucket struct {
	MaxSeconds int
	Cost       int64
}

// DefaultCreditConfig returns the compiled-in tables.
func DefaultCreditConfig() *CreditConfig {
	return &CreditConfig{
		Allowances: map[Tier]int64{
			TierFree:     1000,
			TierStarter:  25000,
			TierPro:      100000,
			TierBusiness: 500000,
		},
		PlanRefs: map[string]Tier{},
		Costs: map[Action]int64{
			ActionChat:            30,
			ActionImageGenerate:   600,
			ActionImageEdit:       600,
			ActionImageAnalyze:    100,
			ActionVideoAnalyze:    500,
			ActionAudioTranscribe: 300,
			ActionSpeechGenerate:  120,
			ActionWebSearch:       150,
		},
		VideoBuckets: []VideoBucket{
			{MaxSeconds: 5, Cost: 3000},
			{MaxSeconds: 6, Cost: 4000},
			{MaxSeconds: 8, Cost: 6000},
			{MaxSeconds: 16, Cost: 12000},
		},
		ChatPromptPer1K: 10,
		ChatOutputPer1K: 30,
		Period:          constants.DefaultPeriod,
	}
}

// NewCreditConfig 从配置创建 CreditConfig，未配置的项使用默认值
func NewCreditConfig(c *conf.Bootstrap) *CreditConfig {
	config := DefaultCreditConfig()
	if c == nil || c.Credit == nil {
		return config
	}
	cc := c.Credit
	for name, t := range cc.Tiers {
		if t == nil {
			continue
		}
		tier := Tier(name)
		if t.Allowance > 0 {
			config.Allowances[tier] = t.Allowance
		}
		for _, ref := range t.PlanRefs {
			config.PlanRefs[ref] = tier
		}
	}
	for action, cost := range cc.Costs {
		config.Costs[Action(action)] = cost
	}
	if len(cc.VideoBuckets) > 0 {
		buckets := make([]VideoBucket, 0, len(cc.VideoBuckets))
		for _, b := range cc.VideoBuckets {
			if b != nil {
				buckets = append(buckets, VideoBucket{MaxSeconds: b.MaxSeconds, Cost: b.Cost})
			}
		}
		config.VideoBuckets = buckets
	}
	sort.Slice(config.VideoBuckets, func(i, j int) bool {
		return config.VideoBuckets[i].MaxSeconds < config.VideoBuckets[j].MaxSeconds
	})
	if cc.ChatPromptPer1K > 0 {
		config.ChatPromptPer1K = cc.ChatPromptPer1K
	}
	if cc.ChatOutputPer1K > 0 {
		config.ChatOutputPer1K = cc.ChatOutputPer1K
	}
	if cc.PeriodDays > 0 {
		config.Period = time.Duration(cc.PeriodDays) * 24 * time.Hour
	}
	return config
}
