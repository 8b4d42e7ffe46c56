// Package parser implements the parser contract of §6: a pure function from
// bytes+URL to a PageRecord. It never raises on malformed HTML and returns
// best-effort fields, matching the source's crawler/parser.py (translated
// from BeautifulSoup selectors into goquery ones) and the teacher's
// crawler/fetcher/parser.go (GoqueryParser), extended here to populate every
// PageRecord field the spec's data model names rather than only links.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devctx/asyncrawler/internal/ferrors"
)

// PageRecord is the structured result of parsing one fetched page, per
// spec.md §3.
type PageRecord struct {
	URL      string
	Title    string
	Text     string
	Links    []string
	Metadata map[string]string
	Images   []Image
	Headers  map[string][]string
	Tables   [][][]string
	Lists    Lists
}

// Image is an extracted <img> with its absolute src and alt text.
type Image struct {
	Src string
	Alt string
}

// Lists holds the unordered/ordered lists found on the page.
type Lists struct {
	UL [][]string
	OL [][]string
}

// Parse extracts a PageRecord from raw HTML bytes. pageURL is the canonical
// URL the bytes were fetched from, used as the base for link/image
// resolution. It never returns an error for malformed HTML: goquery's
// tokenizer is itself lenient, and every extractor is best-effort.
func Parse(body []byte, pageURL string) (*PageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, ferrors.Parse("failed to build DOM", err)
	}

	doc.Find("script, style, noscript").Remove()

	record := &PageRecord{
		URL:      pageURL,
		Metadata: extractMetadata(doc),
		Headers:  extractHeaders(doc),
		Tables:   extractTables(doc),
		Lists:    extractLists(doc),
		Images:   extractImages(doc, pageURL),
		Links:    extractLinks(doc, pageURL),
	}
	record.Title = record.Metadata["title"]
	record.Text = extractText(doc)

	return record, nil
}

func extractMetadata(doc *goquery.Document) map[string]string {
	metadata := map[string]string{}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(s.AttrOr("name", ""))
		property := strings.ToLower(s.AttrOr("property", ""))
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch {
		case name == "description":
			metadata["description"] = content
		case name == "keywords":
			metadata["keywords"] = content
		case property == "og:title":
			if _, ok := metadata["title"]; !ok {
				metadata["title"] = content
			}
		case property == "og:description":
			if _, ok := metadata["description"]; !ok {
				metadata["description"] = content
			}
		}
	})

	return metadata
}

func extractText(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractHeaders(doc *goquery.Document) map[string][]string {
	headers := map[string][]string{}
	for _, level := range []string{"h1", "h2", "h3"} {
		var texts []string
		doc.Find(level).Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(s.Text()))
		})
		headers[level] = texts
	}
	return headers
}

func extractTables(doc *goquery.Document) [][][]string {
	var tables [][][]string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		if len(rows) > 0 {
			tables = append(tables, rows)
		}
	})
	return tables
}

func extractLists(doc *goquery.Document) Lists {
	var lists Lists
	doc.Find("ul").Each(func(_ int, ul *goquery.Selection) {
		items := listItems(ul)
		if len(items) > 0 {
			lists.UL = append(lists.UL, items)
		}
	})
	doc.Find("ol").Each(func(_ int, ol *goquery.Selection) {
		items := listItems(ol)
		if len(items) > 0 {
			lists.OL = append(lists.OL, items)
		}
	})
	return lists
}

func listItems(list *goquery.Selection) []string {
	var items []string
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		items = append(items, strings.TrimSpace(li.Text()))
	})
	return items
}

func extractImages(doc *goquery.Document, pageURL string) []Image {
	var images []Image
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		resolved, ok := resolve(pageURL, strings.TrimSpace(src))
		if !ok {
			return
		}
		images = append(images, Image{Src: resolved, Alt: strings.TrimSpace(s.AttrOr("alt", ""))})
	})
	return images
}

// extractLinks returns the document's links resolved against pageURL,
// de-duplicated in document order (resolving here lets the crawler enqueue
// directly without a second DOM pass); the crawler still
// re-normalizes+filters every link before enqueueing, so resolving twice is
// harmless.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	seen := map[string]bool{}
	var links []string

	doc.Find("a, link").Each(func(_ int, s *goquery.Selection) {
		href, hasHref := s.Attr("href")
		rel, hasRel := s.Attr("rel")
		if !hasHref {
			return
		}
		if s.Get(0).Data == "link" && !(hasRel && rel == "canonical") {
			return
		}
		resolved, ok := resolve(pageURL, strings.TrimSpace(href))
		if !ok || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})

	return links
}

func resolve(baseURL, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.IsAbs() {
		return u.String(), true
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
