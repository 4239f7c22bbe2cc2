package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xuri/excelize/v2"
	"nps-signal-finder/internal/logger"
	"nps-signal-finder/internal/types"
)

const fetchTimeout = 30 * time.Second

// Provider serves the parsed survey rows with a TTL cache in front of the
// source. Exactly one of path or url is set; a remote fetch retries with
// exponential backoff before the load is declared failed.
type Provider struct {
	path string
	url  string
	ttl  time.Duration
	log  *logger.Logger

	mu       sync.Mutex
	rows     []types.SurveyRow
	loadedAt time.Time
}

func NewFileProvider(path string, ttl time.Duration) *Provider {
	return &Provider{path: path, ttl: ttl, log: logger.New().WithComponent("dataset")}
}

func NewRemoteProvider(url string, ttl time.Duration) *Provider {
	return &Provider{url: url, ttl: ttl, log: logger.New().WithComponent("dataset")}
}

// Load returns the cached rows when fresh, otherwise reloads from the
// source. The returned slice is shared; callers must not mutate it.
func (p *Provider) Load() ([]types.SurveyRow, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rows != nil && time.Since(p.loadedAt) < p.ttl {
		return p.rows, p.loadedAt, nil
	}

	rows, err := p.load()
	if err != nil {
		// keep serving the stale copy if we have one
		if p.rows != nil {
			p.log.WithError(err).Warn("reload failed, serving stale dataset")
			return p.rows, p.loadedAt, nil
		}
		return nil, time.Time{}, err
	}
	p.rows = rows
	p.loadedAt = time.Now()
	p.log.WithField("rows", len(rows)).Info("dataset loaded")
	return p.rows, p.loadedAt, nil
}

// Invalidate drops the cache so the next Load hits the source.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.rows = nil
	p.loadedAt = time.Time{}
	p.mu.Unlock()
}

func (p *Provider) load() ([]types.SurveyRow, error) {
	if p.url != "" {
		return p.loadRemote()
	}
	f, err := excelize.OpenFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (p *Provider) loadRemote() ([]types.SurveyRow, error) {
	var body []byte
	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch dataset: status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
