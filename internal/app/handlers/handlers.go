package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"spyder/internal/app/page"
	"spyder/internal/app/spyder"
	"spyder/internal/usecase"

	"go.uber.org/zap"
)

// HTTPOnly admits http and https URLs.
func HTTPOnly(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

// SameHost admits URLs on the host of seed.
func SameHost(seed string) usecase.AdmissionPolicy {
	u, err := url.Parse(seed)
	if err != nil {
		return func(string) bool { return false }
	}
	host := strings.ToLower(u.Host)
	return func(link string) bool {
		l, err := url.Parse(link)
		return err == nil && strings.ToLower(l.Host) == host
	}
}

// All admits a URL when every policy does.
func All(policies ...usecase.AdmissionPolicy) usecase.AdmissionPolicy {
	return func(link string) bool {
		for _, p := range policies {
			if !p(link) {
				return false
			}
		}
		return true
	}
}

// Limit admits at most n URLs accepted by p.
func Limit(n int, p usecase.AdmissionPolicy) usecase.AdmissionPolicy {
	admitted := 0
	return func(link string) bool {
		if admitted >= n || !p(link) {
			return false
		}
		admitted++
		return true
	}
}

// Logged wraps p and logs rejected URLs.
func Logged(p usecase.AdmissionPolicy, logger *zap.Logger) usecase.AdmissionPolicy {
	return func(link string) bool {
		if p(link) {
			return true
		}
		logMsg := fmt.Sprintf("%s is not traversed", link)
		logger.Debug(logMsg)
		return false
	}
}

// LogFetchStart returns a start hook logging each fetch.
func LogFetchStart(logger *zap.Logger) usecase.FetchStartHook {
	return func(link string) {
		logMsg := fmt.Sprintf("fetching %s", link)
		logger.Debug(logMsg)
	}
}

// MaxResults names the crawl error ResultLogger stops the crawl with.
const MaxResults = "max_results"

// ErrMaxResults returns the crawl error for a limit of n results.
func ErrMaxResults(n int) error {
	return spyder.NewError(MaxResults, n)
}

// Result is one fetched page as reported by ResultLogger.
type Result struct {
	URL   string
	Depth int
	Title string
}

// ResultLogger logs every fetched page with its title and calls stop once
// maxResults pages were reported.
type ResultLogger struct {
	ctx        context.Context
	logger     *zap.Logger
	maxResults int
	stop       func(error)
	results    []Result
}

func NewResultLogger(ctx context.Context, maxResults int, stop func(error), logger *zap.Logger) *ResultLogger {
	return &ResultLogger{
		ctx:        ctx,
		logger:     logger,
		maxResults: maxResults,
		stop:       stop,
	}
}

// HandleData is a usecase.DataHook.
func (h *ResultLogger) HandleData(link string, depth int, content string) {
	res := Result{URL: link, Depth: depth, Title: page.Title(h.ctx, content, h.logger)}
	h.results = append(h.results, res)
	logMsg := fmt.Sprintf("crawler result: [url: %s] [depth: %d] Title: %s", res.URL, res.Depth, res.Title)
	h.logger.Info(logMsg)

	if h.maxResults > 0 && len(h.results) >= h.maxResults {
		h.logger.Debug("maximum of results is over. programm shutdown")
		h.stop(ErrMaxResults(h.maxResults))
	}
}

// Results returns the pages reported so far.
func (h *ResultLogger) Results() []Result {
	return h.results
}
