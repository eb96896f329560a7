package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/JakeFAU/website-audit/internal/audit"
)

// jsonFence matches a fenced ```json block. \x60 is a backtick.
var jsonFence = regexp.MustCompile("(?s)\x60\x60\x60(?:json|JSON)?\\s*(\\{.*\\})\\s*\x60\x60\x60")

// ErrMalformed marks model output that is not a valid agent result.
var ErrMalformed = errors.New("malformed agent result")

type wireResult struct {
	Score           *float64  `json:"score"`
	Insights        *[]string `json:"insights"`
	Recommendations *[]string `json:"recommendations"`
}

// ParseResult validates raw model output as an AgentResult. It accepts a
// bare object, a fenced ```json block, or an object surrounded by prose.
func ParseResult(raw string) (audit.AgentResult, error) {
	candidate := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	} else if !strings.HasPrefix(candidate, "{") {
		first := strings.Index(candidate, "{")
		last := strings.LastIndex(candidate, "}")
		if first == -1 || last <= first {
			return audit.AgentResult{}, fmt.Errorf("%w: no JSON object found", ErrMalformed)
		}
		candidate = candidate[first : last+1]
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return audit.AgentResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case wire.Score == nil:
		return audit.AgentResult{}, fmt.Errorf("%w: missing numeric score", ErrMalformed)
	case math.IsNaN(*wire.Score) || math.IsInf(*wire.Score, 0):
		return audit.AgentResult{}, fmt.Errorf("%w: score is not finite", ErrMalformed)
	case wire.Insights == nil:
		return audit.AgentResult{}, fmt.Errorf("%w: missing insights", ErrMalformed)
	case wire.Recommendations == nil:
		return audit.AgentResult{}, fmt.Errorf("%w: missing recommendations", ErrMalformed)
	}

	return audit.AgentResult{
		Score:           ClampScore(*wire.Score),
		Insights:        append([]string{}, (*wire.Insights)...),
		Recommendations: append([]string{}, (*wire.Recommendations)...),
	}, nil
}

// ClampScore rounds to the nearest integer and clamps to [0,100].
func ClampScore(score float64) int {
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
