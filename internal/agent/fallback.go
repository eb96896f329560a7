package agent

import (
	"strings"

	"github.com/JakeFAU/website-audit/internal/audit"
)

// excerptLimit bounds the raw model output echoed into a fallback.
const excerptLimit = 200

type canned struct {
	score           int
	insights        [3]string
	recommendations [3]string
}

var fallbacks = map[audit.TaskName]canned{
	audit.TaskBusiness: {
		score: 70,
		insights: [3]string{
			"The business offering is identifiable but the positioning could be sharper.",
			"The target audience is implied rather than stated explicitly.",
			"Credibility signals such as client logos or credentials are limited.",
		},
		recommendations: [3]string{
			"State who the product is for in the first screen of the page.",
			"Add recognizable client logos, certifications or press mentions.",
			"Align the tone of the copy with the audience you want to attract.",
		},
	},
	audit.TaskStyle: {
		score: 68,
		insights: [3]string{
			"The visual identity is broadly consistent across the page.",
			"Some sections feel generic and do not reinforce the brand.",
			"Typography and spacing could better support readability.",
		},
		recommendations: [3]string{
			"Define a small set of brand colors and apply them consistently.",
			"Replace stock imagery with visuals specific to your business.",
			"Increase contrast and spacing to improve scannability.",
		},
	},
	audit.TaskHero: {
		score: 65,
		insights: [3]string{
			"The headline does not immediately communicate the core value.",
			"The primary call to action competes with other elements.",
			"Visitors may need more than five seconds to understand the offer.",
		},
		recommendations: [3]string{
			"Rewrite the headline to state the outcome your customer gets.",
			"Make a single primary call to action visible above the fold.",
			"Add a one-line subheadline that explains how you deliver the value.",
		},
	},
	audit.TaskProblem: {
		score: 72,
		insights: [3]string{
			"The customer problem is mentioned but not made vivid.",
			"The link between the problem and your solution could be clearer.",
			"Some wording leans on industry jargon.",
		},
		recommendations: [3]string{
			"Describe the pain point in the words your customers use.",
			"Show explicitly how each feature removes part of the problem.",
			"Replace jargon with plain language a newcomer understands.",
		},
	},
	audit.TaskSEO: {
		score: 75,
		insights: [3]string{
			"Basic on-page elements such as title and headings are present.",
			"The meta description may not be optimized for click-through.",
			"Keyword focus across headings is inconsistent.",
		},
		recommendations: [3]string{
			"Write a unique meta description of 140 to 160 characters with a clear benefit.",
			"Use one H1 that contains your primary keyword.",
			"Structure content with descriptive H2 headings.",
		},
	},
	audit.TaskConversion: {
		score: 66,
		insights: [3]string{
			"Trust signals such as testimonials are scarce near calls to action.",
			"Calls to action are not repeated after key content sections.",
			"The path from interest to contact has avoidable friction.",
		},
		recommendations: [3]string{
			"Place testimonials or reviews next to your main call to action.",
			"Repeat the primary call to action after each major section.",
			"Reduce form fields to the minimum needed for a first contact.",
		},
	},
}

var generic = canned{
	score: 60,
	insights: [3]string{
		"Automated analysis was unavailable for this dimension.",
		"The page was evaluated against general best practices.",
		"A manual review is recommended for specific guidance.",
	},
	recommendations: [3]string{
		"Clarify your value proposition.",
		"Strengthen your primary call to action.",
		"Add social proof near key decisions.",
	},
}

// Fallback returns the canned result for a task. Unknown tasks get a
// generic low-specificity result. Each call returns fresh slices.
func Fallback(name audit.TaskName) audit.AgentResult {
	c, ok := fallbacks[name]
	if !ok {
		c = generic
	}
	return audit.AgentResult{
		Score:           c.score,
		Insights:        append([]string{}, c.insights[:]...),
		Recommendations: append([]string{}, c.recommendations[:]...),
	}
}

// FallbackWithExcerpt is Fallback with a truncated excerpt of unusable
// model output prepended to the insights.
func FallbackWithExcerpt(name audit.TaskName, raw string) audit.AgentResult {
	result := Fallback(name)
	excerpt := excerptOf(raw)
	if excerpt == "" {
		return result
	}
	result.Insights = append([]string{"Unstructured analysis: " + excerpt}, result.Insights...)
	return result
}

func excerptOf(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	runes := []rune(collapsed)
	if len(runes) <= excerptLimit {
		return collapsed
	}
	return string(runes[:excerptLimit])
}
