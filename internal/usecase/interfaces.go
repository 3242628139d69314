package usecase

import (
	"context"
	"net/url"
)

// Requester is the transport a Spyder fetches pages with. It returns the
// body whatever the HTTP status, errors are transport failures only.
type Requester interface {
	Get(ctx context.Context, link string) (string, error)
	PostForm(ctx context.Context, link string, form url.Values) (string, error)
}

// Spyder drains a crawl queue starting from its seeds.
type Spyder interface {
	EnqueueSeed(link string)
	Run(ctx context.Context) error
	CurrentURL() string
	IncMaxDepth(delta int32)
}

// AdmissionPolicy decides whether a discovered URL is traversed.
type AdmissionPolicy func(link string) bool

// FetchStartHook is called before a URL is fetched.
type FetchStartHook func(link string)

// DataHook is called with the content of every fetched URL.
type DataHook func(link string, depth int, content string)
