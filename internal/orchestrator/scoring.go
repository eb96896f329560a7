package orchestrator

import (
	"strings"

	"github.com/JakeFAU/website-audit/internal/agent"
	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/config"
)

const maxTopRecommendations = 5

type quota struct {
	task  audit.TaskName
	count int
}

// recommendationQuota is the fixed priority order for top recommendations.
var recommendationQuota = []quota{
	{audit.TaskHero, 2},
	{audit.TaskConversion, 2},
	{audit.TaskSEO, 1},
}

// GenericRecommendations is used when no agent supplied any recommendation.
func GenericRecommendations() []string {
	return []string{
		"Clarify your value proposition in the headline.",
		"Make your primary call to action more prominent.",
		"Add social proof such as testimonials or client logos.",
	}
}

// Score aggregates agent scores into the overall score.
//
// mean: round(mean of all scores), fallbacks included.
// weighted: round(Σw·s / Σw) over genuine results only, falling back to
// mean when no result is genuine.
func Score(outcomes []audit.AgentOutcome, weights map[audit.TaskName]float64, mode string) int {
	if len(outcomes) == 0 {
		return 0
	}
	if mode == config.ScoringWeighted {
		var sum, total float64
		for _, o := range outcomes {
			if !o.Genuine() {
				continue
			}
			w := weights[o.Task]
			sum += w * float64(o.Result.Score)
			total += w
		}
		if total > 0 {
			return agent.ClampScore(sum / total)
		}
	}
	var sum float64
	for _, o := range outcomes {
		sum += float64(o.Result.Score)
	}
	return agent.ClampScore(sum / float64(len(outcomes)))
}

// TopRecommendations takes the first recommendations of the high-impact
// tasks in priority order, drops blanks and caps the list. It is never empty.
func TopRecommendations(results map[audit.TaskName]audit.AgentResult) []string {
	out := make([]string, 0, maxTopRecommendations)
	for _, q := range recommendationQuota {
		recs := results[q.task].Recommendations
		if len(recs) > q.count {
			recs = recs[:q.count]
		}
		for _, rec := range recs {
			if strings.TrimSpace(rec) == "" {
				continue
			}
			out = append(out, rec)
		}
	}
	if len(out) > maxTopRecommendations {
		out = out[:maxTopRecommendations]
	}
	if len(out) == 0 {
		return GenericRecommendations()
	}
	return out
}
