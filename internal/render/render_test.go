package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/website-audit/internal/audit"
)

func TestReportListsAgentsInPanelOrder(t *testing.T) {
	t.Parallel()

	report := audit.Report{
		WebsiteURL:   "https://acme.test",
		OverallScore: 72,
		ScoringMode:  "mean",
		Agents: map[audit.TaskName]audit.AgentResult{
			audit.TaskSEO:      {Score: 75, Insights: []string{"Title tag present"}, Recommendations: []string{"Add alt text"}},
			audit.TaskBusiness: {Score: 81, Insights: []string{"Clear offer"}, Recommendations: []string{"Name the audience"}},
		},
		AgentSources: map[audit.TaskName]audit.Source{
			audit.TaskSEO:      audit.SourceFallback,
			audit.TaskBusiness: audit.SourceModel,
		},
		TopRecommendations: []string{"Name the audience", "Add alt text"},
		Timestamp:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, "id-1", report))
	out := buf.String()

	assert.Contains(t, out, "https://acme.test")
	assert.Contains(t, out, "Overall score: 72/100")
	assert.Contains(t, out, "(fallback)")
	assert.Contains(t, out, "1. Name the audience")
	assert.Contains(t, out, "2. Add alt text")
	assert.NotContains(t, out, "Hero section")

	business := strings.Index(out, "Business clarity")
	seo := strings.Index(out, "SEO")
	require.NotEqual(t, -1, business)
	require.NotEqual(t, -1, seo)
	assert.Less(t, business, seo)
	assert.NotContains(t, out, "\x1b[", "no color codes for a non-terminal writer")
}
