// Package collyfetcher implements chart.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/metrics"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultBaseURL   = "https://www.billboard.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps the response body; zero means unlimited.
	MaxBodyBytes int
}

// Fetcher implements chart.Fetcher using the Colly collector.
type Fetcher struct {
	baseURL       string
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchResult is filled in by the collector callbacks.
type fetchResult struct {
	body   []byte
	status int
	err    error
}

// New builds a Fetcher. The upstream blocks clients that do not look like a
// browser, so the user agent always carries a browser identification string.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute http(s)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(cfg.MaxBodyBytes),
	)
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		baseCollector: c,
		logger:        logger,
	}, nil
}

// ChartURL returns the page address for a chart on a chart-reference date.
func (f *Fetcher) ChartURL(kind chart.Kind, date time.Time) string {
	return fmt.Sprintf("%s/charts/%s/%s", f.baseURL, kind.Path(), chart.FormatDate(date))
}

// Fetch executes a single GET for the chart page. Failures are returned as
// *chart.FetchError and are never retried.
func (f *Fetcher) Fetch(ctx context.Context, kind chart.Kind, date time.Time) ([]byte, error) {
	target := f.ChartURL(kind, date)
	fail := func(status int, err error) error {
		return &chart.FetchError{Kind: kind, Date: date, URL: target, StatusCode: status, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(0, err)
	}

	res := &fetchResult{}
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, res)

	f.logger.Debug("fetching chart page", zap.String("chart", kind.String()), zap.String("url", target))
	start := time.Now()
	err := f.runCollector(ctx, collector, target, res)
	elapsed := time.Since(start)
	if err != nil {
		status := 0
		// On cancellation the visit goroutine may still be writing res.
		if ctx.Err() == nil {
			status = res.status
		}
		metrics.ObserveFetch(kind.String(), statusLabel(status), 0, elapsed)
		return nil, fail(status, err)
	}
	metrics.ObserveFetch(kind.String(), statusLabel(res.status), len(res.body), elapsed)
	return res.body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, res *fetchResult) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	hooks.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.status = r.StatusCode
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		res.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string, res *fetchResult) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if res.err != nil {
			return fmt.Errorf("colly response failed: %w", res.err)
		}
		return nil
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "network"
	}
	return strconv.Itoa(status)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}
