// Package agent runs one analysis task against the text-generation
// capability and guarantees a well-formed result: anything the model gets
// wrong is replaced by the task's canned fallback.
package agent

import "github.com/JakeFAU/website-audit/internal/audit"

const responseContract = `
Respond with a single JSON object and nothing else, using exactly this shape:
{"score": <integer 0-100>, "insights": [<string>, ...], "recommendations": [<string>, ...]}
Give three insights and three concrete, actionable recommendations.`

// Task is one fixed member of the analysis panel.
type Task struct {
	Name   audit.TaskName
	Prompt string
	// Weight is used by weighted scoring; weights need not sum to 1.
	Weight float64
	// InputBudget caps the characters of page content the task receives.
	InputBudget int
}

// DefaultPanel returns the six tasks in their fixed order.
func DefaultPanel() []Task {
	return []Task{
		{
			Name: audit.TaskBusiness,
			Prompt: `You are a business analyst expert. Analyze the website and social profile data to determine:
1. Business model and positioning
2. Target audience
3. Authority and credibility signals
4. Tone and brand personality` + responseContract,
			Weight:      0.15,
			InputBudget: 1500,
		},
		{
			Name: audit.TaskStyle,
			Prompt: `You are a brand style expert. Analyze the website design and content alignment:
1. Visual consistency and brand cohesion
2. Style alignment with target audience
3. Professional appearance
4. Brand differentiation` + responseContract,
			Weight:      0.15,
			InputBudget: 1000,
		},
		{
			Name: audit.TaskHero,
			Prompt: `You are a landing page conversion expert. Analyze the hero section for:
1. Headline clarity and impact (5-second rule)
2. Value proposition strength
3. CTA effectiveness
4. First impression quality` + responseContract,
			Weight:      0.20,
			InputBudget: 900,
		},
		{
			Name: audit.TaskProblem,
			Prompt: `You are a problem articulation specialist. Analyze how well the website communicates:
1. Target audience pain points
2. Problem-solution fit clarity
3. Jargon vs user-friendly language
4. Emotional connection` + responseContract,
			Weight:      0.20,
			InputBudget: 1200,
		},
		{
			Name: audit.TaskSEO,
			Prompt: `You are an SEO and copywriting expert. Analyze the content for:
1. SEO fundamentals (title, meta, headings)
2. Content quality and readability
3. Keyword usage and relevance
4. Copy persuasiveness` + responseContract,
			Weight:      0.15,
			InputBudget: 800,
		},
		{
			Name: audit.TaskConversion,
			Prompt: `You are a conversion rate optimization expert. Identify conversion barriers:
1. Trust signals and social proof
2. CTA placement and design
3. Form friction and user experience
4. Page load and navigation issues` + responseContract,
			Weight:      0.15,
			InputBudget: 1200,
		},
	}
}

// Weights returns the panel's weights keyed by task name.
func Weights(panel []Task) map[audit.TaskName]float64 {
	out := make(map[audit.TaskName]float64, len(panel))
	for _, t := range panel {
		out[t.Name] = t.Weight
	}
	return out
}
