// Package remote fetches portable board documents over HTTP.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/muelle-planner/platform/pkg/codec"
	"github.com/muelle-planner/platform/pkg/common/httpclient"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrRemoteLoad = errors.New("remote load error")

// RemoteLoadError covers every way a fetch can fail: bad locator, transport
// failure, non-2xx answer or a body that is not a board document.
type RemoteLoadError struct {
	Locator string
	Err     error
}

func (e *RemoteLoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Locator, e.Err)
}

func (e *RemoteLoadError) Unwrap() []error {
	return []error{ErrRemoteLoad, e.Err}
}

type Options struct {
	Timeout  time.Duration
	Retries  int
	MaxBytes int64

	// Client credentials; when TokenURL is empty requests go unauthenticated.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type Loader struct {
	client    *http.Client
	retries   int
	baseDelay time.Duration
	maxBytes  int64
}

func NewLoader(opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 4 << 20
	}

	client := httpclient.New(opts.Timeout)
	if opts.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = cc.Client(ctx)
		client.Timeout = opts.Timeout
	}

	return &Loader{
		client:    client,
		retries:   opts.Retries,
		baseDelay: 200 * time.Millisecond,
		maxBytes:  opts.MaxBytes,
	}
}

// NewLoaderWithClient is used when the caller owns the transport.
func NewLoaderWithClient(client *http.Client, retries int, maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	return &Loader{client: client, retries: retries, baseDelay: 10 * time.Millisecond, maxBytes: maxBytes}
}

// Fetch downloads and parses the document at locator. Nothing is applied
// here; the caller replaces the board only when Fetch succeeds.
func (l *Loader) Fetch(ctx context.Context, locator string) (codec.Document, error) {
	target, err := parseLocator(locator)
	if err != nil {
		return codec.Document{}, &RemoteLoadError{Locator: locator, Err: err}
	}

	var body []byte
	err = httpclient.Retry(ctx, l.retries, l.baseDelay, httpclient.IsRetriable, func() error {
		body, err = l.get(ctx, target)
		return err
	})
	if err != nil {
		logger.Log.WithError(err).WithField("locator", locator).Warn("remote document fetch failed")
		return codec.Document{}, &RemoteLoadError{Locator: locator, Err: err}
	}

	doc, err := codec.ParseDocument(body)
	if err != nil {
		return codec.Document{}, &RemoteLoadError{Locator: locator, Err: err}
	}
	logger.Log.WithFields(map[string]interface{}{
		"locator": locator,
		"records": len(doc.Records),
		"variant": doc.Variant,
	}).Info("remote document fetched")
	return doc, nil
}

func (l *Loader) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := httpclient.CheckStatus(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if n > l.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", l.maxBytes)
	}
	return buf.Bytes(), nil
}

func parseLocator(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid locator: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("locator must be an absolute http(s) URL")
	}
	return u.String(), nil
}
