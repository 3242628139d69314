package spyder

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"spyder/internal/app/page"
	"spyder/internal/app/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRequester struct {
	pages   map[string]string
	fail    map[string]error
	fetched []string
	posted  url.Values
}

func (f *fakeRequester) Get(_ context.Context, link string) (string, error) {
	f.fetched = append(f.fetched, link)
	if err, ok := f.fail[link]; ok {
		return "", err
	}
	return f.pages[link], nil
}

func (f *fakeRequester) PostForm(_ context.Context, link string, form url.Values) (string, error) {
	f.posted = form
	return f.pages[link], nil
}

func site() *fakeRequester {
	return &fakeRequester{pages: map[string]string{
		"http://a.com/":         `<a href="x/1.html">1</a><a href="x/2.html#top">2</a><img src="logo.png">`,
		"http://a.com/x/1.html": `<a href="2.html">2</a><a href="/">home</a><a href="#self">self</a>`,
		"http://a.com/x/2.html": `<a href="../x/1.html">1</a><a href="http://b.org/">b</a>`,
		"http://b.org/":         `<a href="/deeper">deeper</a>`,
	}}
}

func admitAll(string) bool { return true }

func sameHost(link string) bool {
	u, err := url.Parse(link)
	return err == nil && u.Host == "a.com"
}

func TestNewSpyder(t *testing.T) {
	l := zap.NewExample()
	s := New(site(), l)
	assert.NotNil(t, s, "New spyder create fail")
	assert.NotEmpty(t, s.SessionID())
	assert.NotEqual(t, s.SessionID(), New(site(), l).SessionID(), "sessions must have distinct ids")
}

func TestRunDefaultPolicyFetchesSeedOnly(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop())
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"http://a.com/"}, r.fetched)
	assert.Equal(t, "http://a.com/", s.CurrentURL())
}

func TestRunVisitsEachURLOnce(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop(), WithOrder(queue.FIFO))
	s.SetAdmissionPolicy(sameHost)
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"http://a.com/", "http://a.com/x/1.html", "http://a.com/x/2.html"}, r.fetched)
}

func TestRunOrder(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop())
	s.SetAdmissionPolicy(admitAll)
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	exp := []string{
		"http://a.com/",
		"http://a.com/x/2.html",
		"http://b.org/",
		"http://b.org/deeper",
		"http://a.com/x/1.html",
	}
	assert.Equal(t, exp, r.fetched, "lifo order crawls depth first")
}

func TestRunStripsFragmentsBeforeAdmission(t *testing.T) {
	var asked []string
	s := New(site(), zap.NewNop())
	s.SetAdmissionPolicy(func(link string) bool {
		asked = append(asked, link)
		return false
	})
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"http://a.com/x/1.html", "http://a.com/x/2.html"}, asked)
}

func TestRunHooks(t *testing.T) {
	var events []string
	var depths []int
	s := New(site(), zap.NewNop(), WithOrder(queue.FIFO))
	s.SetAdmissionPolicy(sameHost)
	s.OnFetchStart(func(link string) {
		events = append(events, "start "+link)
	})
	s.OnDataFetched(func(link string, depth int, content string) {
		assert.Equal(t, link, s.CurrentURL())
		assert.NotEmpty(t, content)
		events = append(events, "data "+link)
		depths = append(depths, depth)
	})
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{
		"start http://a.com/", "data http://a.com/",
		"start http://a.com/x/1.html", "data http://a.com/x/1.html",
		"start http://a.com/x/2.html", "data http://a.com/x/2.html",
	}, events)
	assert.Equal(t, []int{0, 1, 1}, depths)
}

func TestRunTransportErrorHalts(t *testing.T) {
	boom := errors.New("connection reset")
	r := site()
	r.fail = map[string]error{"http://a.com/x/1.html": boom}
	s := New(r, zap.NewNop(), WithOrder(queue.FIFO))
	s.SetAdmissionPolicy(sameHost)
	s.EnqueueSeed("http://a.com/")

	err := s.Run(context.Background())
	assert.Same(t, boom, err, "transport errors are returned verbatim")
	assert.Equal(t, []string{"http://a.com/", "http://a.com/x/1.html"}, r.fetched)
	assert.Equal(t, "http://a.com/", s.CurrentURL(), "failed fetch does not become current")
}

func TestRunContextDone(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop())
	s.EnqueueSeed("http://a.com/")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Empty(t, r.fetched)
}

func TestRunMaxDepth(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop(), WithOrder(queue.FIFO), WithMaxDepth(1))
	s.SetAdmissionPolicy(sameHost)
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"http://a.com/"}, r.fetched)

	r = site()
	s = New(r, zap.NewNop(), WithOrder(queue.FIFO), WithMaxDepth(1))
	s.SetAdmissionPolicy(admitAll)
	s.IncMaxDepth(2)
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"http://a.com/", "http://a.com/x/1.html", "http://a.com/x/2.html", "http://b.org/"}, r.fetched)
}

func TestRunFollowImagesAndStylesheets(t *testing.T) {
	r := &fakeRequester{pages: map[string]string{
		"http://a.com/":           `<link rel="stylesheet" href="/css/s.css"><img src="/i.png"><a href="/p">`,
		"http://a.com/css/s.css":  `body { background: url(../img/bg.png) }`,
		"http://a.com/i.png":      "",
		"http://a.com/img/bg.png": "",
	}}
	s := New(r, zap.NewNop(), WithOrder(queue.FIFO), WithFollow(page.Images|page.Stylesheets))
	s.SetAdmissionPolicy(admitAll)
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{
		"http://a.com/",
		"http://a.com/i.png",
		"http://a.com/css/s.css",
		"http://a.com/img/bg.png",
	}, r.fetched)
}

func TestRunAbort(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop(), WithOrder(queue.FIFO))
	s.SetAdmissionPolicy(sameHost)
	s.OnDataFetched(func(link string, depth int, content string) {
		if depth == 1 {
			s.Abort(NewError("enough", link))
		}
	})
	s.EnqueueSeed("http://a.com/")

	err := s.Run(context.Background())
	var crawlErr *Error
	require.True(t, errors.As(err, &crawlErr))
	assert.Equal(t, "enough", crawlErr.Name)
	assert.Equal(t, "http://a.com/x/1.html", crawlErr.Value)
	assert.Len(t, r.fetched, 2)
}

func TestEnqueueSeedTwice(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop())
	s.EnqueueSeed("http://a.com/")
	s.EnqueueSeed("http://a.com/")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"http://a.com/"}, r.fetched)
}

func TestExtractCache(t *testing.T) {
	s := New(site(), zap.NewNop())
	doc := `<a href="a.html"><img src="i.png">`

	assert.Equal(t, []string{"http://a.com/a.html"}, s.ExtractAnchors(doc, "http://a.com/"))
	first := s.last

	// Same URL: the cached result is served, even for another capability.
	assert.Equal(t, []string{"http://a.com/i.png"}, s.ExtractImages(`<img src="other.png">`, "http://a.com/"))
	assert.Same(t, first, s.last)

	// New URL: the cache entry is replaced.
	assert.Equal(t, []string{"http://b.org/other.png"}, s.ExtractImages(`<img src="other.png">`, "http://b.org/"))
	assert.NotSame(t, first, s.last)
	assert.Empty(t, s.ExtractStylesheets("", "http://b.org/"))
}

func TestExtractStylesheetRefs(t *testing.T) {
	s := New(site(), zap.NewNop())
	got := s.ExtractStylesheetRefs(`background: url(foo.png); background: url("bar.png")`, "http://a.com/css/s.css")
	assert.Equal(t, []string{"http://a.com/css/foo.png", "http://a.com/css/bar.png"}, got)
}

func TestGrabByPost(t *testing.T) {
	r := site()
	s := New(r, zap.NewNop())
	body, err := s.GrabByPost(context.Background(), "http://b.org/", url.Values{"q": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, `<a href="/deeper">deeper</a>`, body)
	assert.Equal(t, "x", r.posted.Get("q"))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, `policy:"http://a.com/"`, NewError("policy", "http://a.com/").Error())
	assert.Equal(t, `limit:10`, NewError("limit", 10).Error())
}
