package anchor

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout for layer
	// partition fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// defaultBaseBackoff is the base delay for exponential backoff.
	defaultBaseBackoff = 500 * time.Millisecond

	// maxResponseBytes limits the response body to 50 MB to prevent OOM.
	maxResponseBytes = 50 << 20
)

// DownloadOption configures Downloader behavior.
type DownloadOption func(*downloadConfig)

type downloadConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultDownloadConfig() downloadConfig {
	return downloadConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) DownloadOption {
	return func(c *downloadConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) DownloadOption {
	return func(c *downloadConfig) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between retries.
func WithBaseBackoff(d time.Duration) DownloadOption {
	return func(c *downloadConfig) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) DownloadOption {
	return func(c *downloadConfig) {
		c.client = client
	}
}

// Downloader fetches decoded catalog layer partitions over HTTP, for the
// supplemental street-names layer named by the street-section reference set
// a conversion run collects.
type Downloader struct {
	baseURL string
	layer   string
	cfg     downloadConfig
}

// NewDownloader creates a Downloader for the given catalog base URL and
// layer name, e.g. NewDownloader("https://catalog.example.com", "street-names").
func NewDownloader(baseURL, layer string, opts ...DownloadOption) (*Downloader, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("downloader: catalog base URL is empty")
	}
	if layer == "" {
		return nil, fmt.Errorf("downloader: layer name is empty")
	}

	cfg := defaultDownloadConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Downloader{baseURL: baseURL, layer: layer, cfg: cfg}, nil
}

// FetchPartition downloads one decoded layer partition into destDir as
// <layer>_<partition>_v<version>.json. If the file already exists it is left
// untouched and skipped=true is returned. Transient failures are retried
// with exponential backoff.
func (d *Downloader) FetchPartition(ctx context.Context, partitionName string, version int, destDir string) (path string, skipped bool, err error) {
	path = filepath.Join(destDir, fmt.Sprintf("%s_%s_v%d.json", d.layer, partitionName, version))
	if _, statErr := os.Stat(path); statErr == nil {
		log.Printf("%s --> existing already, skipping", path)
		return path, true, nil
	}

	requestURL := fmt.Sprintf("%s/layers/%s/partitions/%s?version=%d",
		d.baseURL, url.PathEscape(d.layer), url.PathEscape(partitionName), version)

	client := d.cfg.client
	if client == nil {
		client = &http.Client{Timeout: d.cfg.timeout}
	}

	var body []byte
	var lastErr error
	for attempt := 0; attempt < d.cfg.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := d.cfg.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return "", false, fmt.Errorf("fetch partition %s: %w", partitionName, ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, lastErr = doFetch(ctx, client, requestURL)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return "", false, fmt.Errorf("fetch partition %s: all %d attempts failed: %w",
			partitionName, d.cfg.maxRetries, lastErr)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", false, fmt.Errorf("creating %s: %w", destDir, err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", path, err)
	}

	log.Printf("layer: %s | partition: %s | version: %d | size: %s",
		d.layer, partitionName, version, humanize.Bytes(uint64(len(body))))
	return path, false, nil
}

// FetchAll downloads every partition in refs, in sorted order for
// reproducible logs. The first failure stops the run.
func (d *Downloader) FetchAll(ctx context.Context, refs RefSet, version int, destDir string) error {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, _, err := d.FetchPartition(ctx, name, version, destDir); err != nil {
			return err
		}
	}
	return nil
}

// doFetch performs a single HTTP GET and returns the response body bytes.
func doFetch(ctx context.Context, client *http.Client, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", requestURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP GET %s: status %d", requestURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", requestURL, err)
	}

	return body, nil
}
