package page // gofmt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"spyder/internal/app/resolver"
	"spyder/internal/app/sanitizer"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Capability selects which references an Extractor collects.
type Capability uint8

const (
	Anchors Capability = 1 << iota
	Images
	Stylesheets

	All = Anchors | Images | Stylesheets
)

// Has reports whether every capability in o is enabled in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	var names []string
	if c.Has(Anchors) {
		names = append(names, "anchors")
	}
	if c.Has(Images) {
		names = append(names, "images")
	}
	if c.Has(Stylesheets) {
		names = append(names, "stylesheets")
	}
	return strings.Join(names, "|")
}

// Result holds the resolved references of one page in document order.
// Duplicates are kept.
type Result struct {
	Anchors     []string
	Images      []string
	Stylesheets []string
}

type rule struct {
	capability Capability
	attr       string
}

var rules = map[string]rule{
	"a":    {Anchors, "href"},
	"img":  {Images, "src"},
	"link": {Stylesheets, "href"},
}

// Extractor collects a, img and link references from sanitized HTML.
type Extractor struct {
	caps   Capability
	logger *zap.Logger
}

func NewExtractor(caps Capability, logger *zap.Logger) *Extractor {
	return &Extractor{caps: caps, logger: logger}
}

// Extract tokenizes html and resolves every enabled reference against
// baseURL. Only the first occurrence of an attribute in a tag counts.
func (e *Extractor) Extract(raw, baseURL string) *Result {
	res := &Result{}
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				e.logger.Debug("tokenizer stopped", zap.String("url", baseURL), zap.Error(err))
			}
			return res
		case html.StartTagToken, html.SelfClosingTagToken:
			e.handleTag(z, baseURL, res)
		}
	}
}

func (e *Extractor) handleTag(z *html.Tokenizer, baseURL string, res *Result) {
	name, hasAttr := z.TagName()
	r, ok := rules[string(name)]
	if !ok || !hasAttr || !e.caps.Has(r.capability) {
		return
	}
	for more := true; more; {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) != r.attr {
			continue
		}
		u := resolver.Resolve(baseURL, string(val))
		switch r.capability {
		case Anchors:
			res.Anchors = append(res.Anchors, u)
		case Images:
			res.Images = append(res.Images, u)
		case Stylesheets:
			res.Stylesheets = append(res.Stylesheets, u)
		}
		logMsg := fmt.Sprintf("found %s reference %s", name, u)
		e.logger.Debug(logMsg)
		return
	}
}

// Parse sanitizes html and extracts the references selected by caps.
func Parse(raw, baseURL string, caps Capability, logger *zap.Logger) *Result {
	return NewExtractor(caps, logger).Extract(sanitizer.Sanitize(raw), baseURL)
}

// Title returns the text of the first <title> element of html.
func Title(ctx context.Context, raw string, logger *zap.Logger) string {
	select {
	case <-ctx.Done():
		logger.Debug("context done in title")
		return ""
	default:
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err != nil {
			logger.Error("new document error", zap.Error(err))
			return ""
		}
		title := strings.TrimSpace(doc.Find("title").First().Text())
		logMsg := fmt.Sprintf("title return title: %s", title)
		logger.Debug(logMsg)
		return title
	}
}
