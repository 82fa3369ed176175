package updater

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
)

// Credentials is the content of kaggle.json.
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// LoadCredentials reads a kaggle.json file. A missing file reports ErrNotConfigured.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Credentials{}, fmt.Errorf("%s: %w", path, ErrNotConfigured)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials %s: %w", path, err)
	}
	if creds.Username == "" || creds.Key == "" {
		return Credentials{}, fmt.Errorf("credentials %s: username and key are required", path)
	}
	return creds, nil
}

// datasetInfo is the subset of a dataset listing the updater reads.
type datasetInfo struct {
	Ref         string `json:"ref"`
	LastUpdated string `json:"lastUpdated"`
}

type kaggleClient struct {
	http *resty.Client
}

func newKaggleClient(baseURL string, creds Credentials, timeout time.Duration) *kaggleClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetBasicAuth(creds.Username, creds.Key).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &kaggleClient{http: client}
}

// lastUpdated returns the update time of the first dataset matching search.
func (c *kaggleClient) lastUpdated(ctx context.Context, search string) (time.Time, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("search", search).
		Get("/datasets/list")
	if err != nil {
		return time.Time{}, fmt.Errorf("list datasets: %w", err)
	}
	if resp.IsError() {
		return time.Time{}, fmt.Errorf("list datasets: status %d", resp.StatusCode())
	}

	var datasets []datasetInfo
	if err := json.Unmarshal(resp.Body(), &datasets); err != nil {
		return time.Time{}, fmt.Errorf("decode dataset list: %w", err)
	}
	if len(datasets) == 0 {
		return time.Time{}, fmt.Errorf("dataset %q not found", search)
	}
	updated, err := parseTimestamp(datasets[0].LastUpdated)
	if err != nil {
		return time.Time{}, fmt.Errorf("dataset %q lastUpdated: %w", search, err)
	}
	return updated, nil
}

// download writes the dataset archive to dest.
func (c *kaggleClient) download(ctx context.Context, dataset, dest string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/zip").
		SetOutput(dest).
		Get("/datasets/download/" + dataset)
	if err != nil {
		return fmt.Errorf("download %s: %w", dataset, err)
	}
	if resp.IsError() {
		return fmt.Errorf("download %s: status %d", dataset, resp.StatusCode())
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 and zone-less ISO timestamps, the latter as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
