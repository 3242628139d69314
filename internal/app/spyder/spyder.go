// Package spyder drives a crawl: pop a URL, fetch it, extract its links,
// push the admitted ones, until the queue is drained.
package spyder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"spyder/internal/app/page"
	"spyder/internal/app/queue"
	"spyder/internal/app/resolver"
	"spyder/internal/app/stylesheet"
	"spyder/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ usecase.Spyder = (*Spyder)(nil)

// Option configures a Spyder.
type Option func(*Spyder)

// WithOrder sets the queue pop order. Defaults to queue.LIFO.
func WithOrder(o queue.Order) Option {
	return func(s *Spyder) {
		s.order = o
	}
}

// WithFollow selects which extracted references are traversal candidates.
// Defaults to page.Anchors.
func WithFollow(c page.Capability) Option {
	return func(s *Spyder) {
		s.follow = c
	}
}

// WithMaxDepth stops expanding pages whose children would reach depth d.
// Zero, the default, expands every page.
func WithMaxDepth(d int32) Option {
	return func(s *Spyder) {
		s.maxDepth = d
	}
}

type parseCache struct {
	url    string
	result *page.Result
}

type Spyder struct {
	r        usecase.Requester
	logger   *zap.Logger
	id       string
	order    queue.Order
	queue    *queue.Queue
	follow   page.Capability
	maxDepth int32

	admit      usecase.AdmissionPolicy
	fetchStart usecase.FetchStartHook
	data       usecase.DataHook

	currentURL string
	last       *parseCache
	abort      error
}

func New(r usecase.Requester, logger *zap.Logger, opts ...Option) *Spyder {
	s := &Spyder{
		r:          r,
		id:         uuid.New().String(),
		order:      queue.LIFO,
		follow:     page.Anchors,
		admit:      func(string) bool { return false },
		fetchStart: func(string) {},
		data:       func(string, int, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.With(zap.String("session", s.id))
	s.queue = queue.New(s.order)
	s.logger.Debug("new spyder initialize", zap.Stringer("order", s.order), zap.Stringer("follow", s.follow))
	return s
}

// SetAdmissionPolicy replaces the policy deciding whether a discovered URL
// is traversed. The default rejects everything.
func (s *Spyder) SetAdmissionPolicy(p usecase.AdmissionPolicy) {
	s.admit = p
}

// OnFetchStart sets the hook called before each fetch.
func (s *Spyder) OnFetchStart(h usecase.FetchStartHook) {
	s.fetchStart = h
}

// OnDataFetched sets the hook called with each fetched page.
func (s *Spyder) OnDataFetched(h usecase.DataHook) {
	s.data = h
}

// EnqueueSeed adds link to the queue at depth 0.
func (s *Spyder) EnqueueSeed(link string) {
	if !s.queue.Push(queue.Entry{URL: link}) {
		logMsg := fmt.Sprintf("seed %s is already queued", link)
		s.logger.Debug(logMsg)
	}
}

// CurrentURL returns the URL whose content is being processed.
func (s *Spyder) CurrentURL() string {
	return s.currentURL
}

// SessionID identifies this crawl session in logs.
func (s *Spyder) SessionID() string {
	return s.id
}

// IncMaxDepth raises the depth limit. It may be called from another
// goroutine while Run is active.
func (s *Spyder) IncMaxDepth(delta int32) {
	n := atomic.AddInt32(&s.maxDepth, delta)
	logMsg := fmt.Sprintf("new maxDepth: %d", n)
	s.logger.Debug(logMsg)
}

// Abort makes Run return err once the current page is processed. Hooks use
// it to stop the crawl.
func (s *Spyder) Abort(err error) {
	s.abort = err
}

// Run processes queued URLs until the queue is empty, Abort is called or
// ctx is done. A transport error stops the crawl and is returned as is.
func (s *Spyder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("context done in spyder run")
			return ctx.Err()
		default:
		}

		e, err := s.queue.Pop()
		if errors.Is(err, queue.ErrEmpty) {
			s.logger.Debug("queue is empty, spyder stops")
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.visit(ctx, e); err != nil {
			return err
		}
		if s.abort != nil {
			err := s.abort
			s.abort = nil
			s.logger.Debug("spyder aborted", zap.Error(err))
			return err
		}
	}
}

func (s *Spyder) visit(ctx context.Context, e queue.Entry) error {
	s.fetchStart(e.URL)
	content, err := s.GrabByGet(ctx, e.URL)
	if err != nil {
		s.logger.Error("error by get request", zap.String("url", e.URL), zap.Error(err))
		return err
	}
	s.currentURL = e.URL
	s.data(e.URL, e.Depth, content)

	if max := atomic.LoadInt32(&s.maxDepth); max > 0 && e.Depth+1 >= int(max) {
		logMsg := fmt.Sprintf("actual depth: %d, maxdepth: %d", e.Depth, max)
		s.logger.Debug(logMsg)
		return nil
	}

	for _, link := range s.candidates(content, e.URL) {
		link = resolver.Defrag(link)
		if !s.admit(link) {
			continue
		}
		if s.queue.Push(queue.Entry{URL: link, Depth: e.Depth + 1}) {
			logMsg := fmt.Sprintf("url %s queued at depth %d", link, e.Depth+1)
			s.logger.Debug(logMsg)
		}
	}
	return nil
}

// candidates returns the traversal candidates of content fetched from link.
func (s *Spyder) candidates(content, link string) []string {
	if isStylesheet(link) {
		return s.ExtractStylesheetRefs(content, link)
	}
	res := s.parse(content, link)
	var out []string
	if s.follow.Has(page.Anchors) {
		out = append(out, res.Anchors...)
	}
	if s.follow.Has(page.Images) {
		out = append(out, res.Images...)
	}
	if s.follow.Has(page.Stylesheets) {
		out = append(out, res.Stylesheets...)
	}
	return out
}

// GrabByGet fetches link with GET.
func (s *Spyder) GrabByGet(ctx context.Context, link string) (string, error) {
	return s.r.Get(ctx, link)
}

// GrabByPost fetches link with POST and form parameters.
func (s *Spyder) GrabByPost(ctx context.Context, link string, params url.Values) (string, error) {
	return s.r.PostForm(ctx, link, params)
}

// ExtractAnchors returns the a@href references of html fetched from link.
func (s *Spyder) ExtractAnchors(html, link string) []string {
	return s.parse(html, link).Anchors
}

// ExtractImages returns the img@src references of html fetched from link.
func (s *Spyder) ExtractImages(html, link string) []string {
	return s.parse(html, link).Images
}

// ExtractStylesheets returns the link@href references of html fetched
// from link.
func (s *Spyder) ExtractStylesheets(html, link string) []string {
	return s.parse(html, link).Stylesheets
}

// ExtractStylesheetRefs returns the url() references of css fetched from
// link.
func (s *Spyder) ExtractStylesheetRefs(css, link string) []string {
	return stylesheet.Extract(css, link)
}

// parse extracts html once per URL: the last result is reused while link
// stays the same and replaced when it changes.
func (s *Spyder) parse(html, link string) *page.Result {
	if s.last != nil && s.last.url == link {
		return s.last.result
	}
	s.last = &parseCache{
		url:    link,
		result: page.Parse(html, link, page.All, s.logger),
	}
	return s.last.result
}

func isStylesheet(link string) bool {
	return strings.HasSuffix(strings.ToLower(resolver.Split(link).Path), ".css")
}
