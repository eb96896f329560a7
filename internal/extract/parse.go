package extract

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/website-audit/internal/audit"
)

// fieldCap bounds the single-line fields (title, meta description, h1).
const fieldCap = 300

var (
	titlePattern   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Pattern      = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	metaTagPattern = regexp.MustCompile(`(?is)<meta\b[^>]*>`)
	metaNameDesc   = regexp.MustCompile(`(?is)\bname\s*=\s*["']?description["'\s/>]`)
	metaContent    = regexp.MustCompile(`(?is)\bcontent\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	bodyOpen       = regexp.MustCompile(`(?is)<body[^>]*>`)

	invisibleBlocks = regexp.MustCompile(`(?is)<script\b.*?</script\s*>|<style\b.*?</style\s*>|<noscript\b.*?</noscript\s*>|<!--.*?-->`)
	unterminated    = regexp.MustCompile(`(?is)<(script|style|noscript)\b.*$`)
	anyTag          = regexp.MustCompile(`(?s)<[^>]*>`)
	partialTag      = regexp.MustCompile(`<[^>]*$`)
)

const heroSelector = `section[class*="hero"], div[class*="hero"], ` +
	`section[class*="banner"], div[class*="banner"], ` +
	`section[class*="header"], div[class*="header"]`

// Limits bounds the extracted fragments.
type Limits struct {
	TextCap       int
	HeroCap       int
	HeroScanBytes int
}

// DefaultLimits mirrors the payload sizes the analysis prompts are tuned for.
func DefaultLimits() Limits {
	return Limits{TextCap: 1500, HeroCap: 600, HeroScanBytes: 4000}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.TextCap <= 0 {
		l.TextCap = d.TextCap
	}
	if l.HeroCap <= 0 {
		l.HeroCap = d.HeroCap
	}
	if l.HeroScanBytes <= 0 {
		l.HeroScanBytes = d.HeroScanBytes
	}
	return l
}

// Parse derives the bounded text fragments from raw markup. It is a pure
// function of its inputs and never fails; missing elements yield "".
func Parse(url string, markup []byte, limits Limits) audit.ExtractedPage {
	limits = limits.withDefaults()
	return audit.ExtractedPage{
		Title:           Truncate(firstMatch(titlePattern, markup), fieldCap),
		MetaDescription: Truncate(metaDescription(markup), fieldCap),
		H1:              Truncate(firstMatch(h1Pattern, markup), fieldCap),
		HeroSection:     Truncate(hero(markup, limits.HeroScanBytes), limits.HeroCap),
		TextContent:     Truncate(VisibleText(markup), limits.TextCap),
		URL:             url,
	}
}

// VisibleText strips scripts, styles, comments and tags, decodes entities
// and collapses whitespace.
func VisibleText(markup []byte) string {
	out := invisibleBlocks.ReplaceAll(markup, nil)
	out = unterminated.ReplaceAll(out, nil)
	out = anyTag.ReplaceAll(out, []byte(" "))
	out = partialTag.ReplaceAll(out, nil)
	return collapse(html.UnescapeString(strings.ToValidUTF8(string(out), "")))
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

func firstMatch(pattern *regexp.Regexp, markup []byte) string {
	m := pattern.FindSubmatch(markup)
	if m == nil {
		return ""
	}
	return VisibleText(m[1])
}

func metaDescription(markup []byte) string {
	for _, tag := range metaTagPattern.FindAll(markup, -1) {
		if !metaNameDesc.Match(tag) {
			continue
		}
		m := metaContent.FindSubmatch(tag)
		if m == nil {
			continue
		}
		value := m[1]
		if len(value) == 0 {
			value = m[2]
		}
		return collapse(html.UnescapeString(string(value)))
	}
	return ""
}

// hero prefers an explicitly marked hero/banner region and otherwise uses
// the leading slice of the body markup.
func hero(markup []byte, scanBytes int) string {
	if text := markedHero(markup); text != "" {
		return text
	}
	start := 0
	if loc := bodyOpen.FindIndex(markup); loc != nil {
		start = loc[1]
	}
	end := start + scanBytes
	if end > len(markup) {
		end = len(markup)
	}
	return VisibleText(markup[start:end])
}

func markedHero(markup []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return ""
	}
	sel := doc.Find(heroSelector).First()
	if sel.Length() == 0 {
		return ""
	}
	sel.Find("script, style, noscript").Remove()
	return collapse(sel.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
