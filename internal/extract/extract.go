package extract

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Chapter is the result of a successful extraction. Paragraphs is never
// empty on success; an empty body is an extraction failure, not a valid
// empty chapter.
type Chapter struct {
	Title      string
	Paragraphs []string
	NextURL    string
}

func (c Chapter) Body() string {
	return strings.Join(c.Paragraphs, "\n\n")
}

var (
	ErrNoContent = errors.New("no content element matched any strategy")
	ErrEmptyBody = errors.New("content element matched but yielded no text")
)

// minParagraphLen filters navigation crumbs, ad labels and similar noise
// that reader pages scatter between real paragraphs.
const minParagraphLen = 21

type strategy struct {
	name string
	run  func(doc *goquery.Document) (paragraphs []string, matched bool)
}

// bodyStrategies are tried in order of decreasing specificity; the first one
// that produces non-empty text wins even when later ones would also match.
var bodyStrategies = []strategy{
	{"reader-text", selectorStrategy(".reader-container .text")},
	{"chapter-content", selectorStrategy(".chapter-content")},
	{"article-content", selectorStrategy("article .content")},
	{"reader-wrap", selectorStrategy(".reader__container")},
	{"reader-paragraphs", selectorStrategy("div[class*='reader'] p")},
	{"largest-block", largestBlock},
}

var titleSelectors = []string{
	".reader-header h1",
	".chapter-title",
	"h1.title",
	"h1",
}

var nextSelectors = []string{
	"a.next-chapter",
	"a[rel='next']",
	".reader-navigation .next",
}

// Extract pulls the chapter body, title and next-chapter link out of a
// rendered page. Title and next link are best-effort and never fail the
// extraction; the body is mandatory.
func Extract(html, pageURL string) (Chapter, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Chapter{}, err
	}

	anyMatched := false
	for _, st := range bodyStrategies {
		paragraphs, matched := st.run(doc)
		if matched {
			anyMatched = true
		}
		if len(paragraphs) == 0 {
			continue
		}

		return Chapter{
			Title:      extractTitle(doc),
			Paragraphs: paragraphs,
			NextURL:    extractNextURL(doc, pageURL),
		}, nil
	}

	if anyMatched {
		return Chapter{}, ErrEmptyBody
	}

	return Chapter{}, ErrNoContent
}

func selectorStrategy(selector string) func(*goquery.Document) ([]string, bool) {
	return func(doc *goquery.Document) ([]string, bool) {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			return nil, false
		}

		var out []string
		sel.Each(func(_ int, container *goquery.Selection) {
			out = append(out, collectParagraphs(container)...)
		})

		return out, true
	}
}

func collectParagraphs(container *goquery.Selection) []string {
	var out []string

	inner := container.Find("p, div")
	if inner.Length() > 0 {
		inner.Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				out = append(out, t)
			}
		})

		return out
	}

	if t := cleanText(container.Text()); t != "" {
		out = append(out, t)
	}

	return out
}

// largestBlock is the last resort for unknown markup: take whichever
// div/article/section carries the most text and split it on blank lines.
func largestBlock(doc *goquery.Document) ([]string, bool) {
	var best string
	doc.Find("div, article, section").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); len(t) > len(best) {
			best = t
		}
	})

	if best == "" {
		return nil, false
	}

	var out []string
	for _, line := range strings.Split(best, "\n") {
		if t := cleanText(line); t != "" {
			out = append(out, t)
		}
	}

	return out, true
}

func cleanText(s string) string {
	t := strings.Join(strings.Fields(s), " ")
	if len(t) < minParagraphLen {
		return ""
	}

	return t
}

func extractTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	return ""
}

func extractNextURL(doc *goquery.Document, pageURL string) string {
	for _, sel := range nextSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		href, ok := node.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}

		return resolveURL(pageURL, strings.TrimSpace(href))
	}

	return ""
}

func resolveURL(baseURL, href string) string {
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}
