// Package detector decides when a statically fetched landing page is a
// client-rendered shell that must be re-fetched through a headless browser.
package detector

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/JakeFAU/website-audit/internal/audit"
)

const defaultThreshold = 2048

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
	// MinVisibleText is the amount of tag-free text below which a page counts as empty.
	MinVisibleText int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold, MinVisibleText: 64}
}

var spaMarkers = [][]byte{
	[]byte("id=\"__next\""),
	[]byte("id=\"__nuxt\""),
	[]byte("id=\"root\"></div>"),
	[]byte("id=\"app\"></div>"),
	[]byte("data-reactroot"),
	[]byte("ng-version="),
}

var (
	invisibleBlocks = regexp.MustCompile(`(?is)<(script|style|noscript)\b.*?</(script|style|noscript)>`)
	anyTag          = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp audit.FetchResponse) bool {
	if resp.StatusCode != 200 {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) && visibleTextLen(body) < h.MinVisibleText {
			return true
		}
	}
	return false
}

func visibleTextLen(body []byte) int {
	stripped := invisibleBlocks.ReplaceAll(body, nil)
	stripped = anyTag.ReplaceAll(stripped, nil)
	return len(strings.Join(strings.Fields(string(stripped)), " "))
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Treat the rest of the document as part of the malformed script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	if scriptCoverage == 0 {
		return false
	}
	return scriptCoverage*100/total >= 25
}
