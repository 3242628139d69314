package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spyder/internal/usecase"

	"go.uber.org/zap"
)

var _ usecase.Requester = requester{}

type requester struct {
	timeout time.Duration
	logger  *zap.Logger
	rt      http.RoundTripper
}

// NewRequester returns a Requester using rt, or http.DefaultTransport when
// rt is nil.
func NewRequester(timeout time.Duration, logger *zap.Logger, rt http.RoundTripper) requester {
	logger.Debug("new requester initialize")
	return requester{
		timeout: timeout,
		logger:  logger,
		rt:      rt,
	}
}

// Get fetches link with GET.
func (r requester) Get(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		logMsg := fmt.Sprintf("error by get new request, url: %s", link)
		r.logger.Error(logMsg)
		return "", err
	}
	return r.do(req)
}

// PostForm fetches link with POST and form as an urlencoded body.
func (r requester) PostForm(ctx context.Context, link string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, link, strings.NewReader(form.Encode()))
	if err != nil {
		logMsg := fmt.Sprintf("error by post new request, url: %s", link)
		r.logger.Error(logMsg)
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r.do(req)
}

func (r requester) do(req *http.Request) (string, error) {
	cl := &http.Client{
		Timeout:   r.timeout,
		Transport: r.rt,
	}
	resp, err := cl.Do(req)
	if err != nil {
		r.logger.Error("http.client error", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Error("read body error", zap.Error(err))
		return "", err
	}
	logMsg := fmt.Sprintf("%s %s: status %d, %d bytes", req.Method, req.URL, resp.StatusCode, len(body))
	r.logger.Debug(logMsg)
	return string(body), nil
}
