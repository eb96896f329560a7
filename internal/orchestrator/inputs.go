package orchestrator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/website-audit/internal/agent"
	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/extract"
)

// NormalizeURL prefixes https:// when no scheme is present and requires an
// http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: website_url is required", ErrInvalidRequest)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: website_url %q is not a valid URL", ErrInvalidRequest, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: website_url must use http or https", ErrInvalidRequest)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: website_url %q has no host", ErrInvalidRequest, raw)
	}
	return u.String(), nil
}

type field struct {
	label string
	value string
}

// BuildInput renders the slice of the page a task is allowed to see,
// truncated to the task's budget. Short fields come first so truncation
// only ever trims the long free-text fields.
func BuildInput(task agent.Task, page audit.ExtractedPage, socialURL string) string {
	social := socialURL
	if strings.TrimSpace(social) == "" {
		social = "Not provided"
	}
	var fields []field
	switch task.Name {
	case audit.TaskBusiness:
		fields = []field{
			{"Website URL", page.URL}, {"Title", page.Title}, {"Meta Description", page.MetaDescription},
			{"H1", page.H1}, {"Social Profile", social}, {"Body Content", page.TextContent},
		}
	case audit.TaskStyle:
		fields = []field{
			{"Title", page.Title}, {"H1", page.H1}, {"Hero Section", page.HeroSection}, {"Body Content", page.TextContent},
		}
	case audit.TaskHero:
		fields = []field{{"Title", page.Title}, {"H1", page.H1}, {"Hero Section", page.HeroSection}}
	case audit.TaskProblem:
		fields = []field{
			{"H1", page.H1}, {"Meta Description", page.MetaDescription},
			{"Hero Section", page.HeroSection}, {"Body Content", page.TextContent},
		}
	case audit.TaskSEO:
		fields = []field{
			{"Website URL", page.URL}, {"Title", page.Title}, {"Meta Description", page.MetaDescription},
			{"H1", page.H1}, {"Body Content Excerpt", page.TextContent},
		}
	case audit.TaskConversion:
		fields = []field{
			{"Social Profile", social}, {"Hero Section", page.HeroSection}, {"Body Content", page.TextContent},
		}
	default:
		fields = []field{
			{"Website URL", page.URL}, {"Title", page.Title}, {"H1", page.H1}, {"Body Content", page.TextContent},
		}
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.label)
		b.WriteString(": ")
		b.WriteString(f.value)
	}
	return extract.Truncate(b.String(), task.InputBudget)
}
