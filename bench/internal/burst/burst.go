// Package burst fires a batch of simultaneous requests so that shedding and
// timeouts show up in the status histogram.
package burst

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL            string
	Paths              []string
	Body               []byte
	Size               int
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Result maps status codes to how many requests ended with them; 0 counts
// transport failures.
type Result map[int]int

func Run(ctx context.Context, cfg *Config) (Result, error) {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
			MaxIdleConns:        cfg.Size,
			MaxIdleConnsPerHost: cfg.Size,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var (
		mu     sync.Mutex
		result = make(Result)
		start  = make(chan struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for range cfg.Size {
		g.Go(func() error {
			<-start
			path := cfg.Paths[rand.IntN(len(cfg.Paths))]
			code, err := send(ctx, client, cfg.BaseURL+path, cfg.Body)
			if err != nil {
				code = 0
			}
			mu.Lock()
			result[code]++
			mu.Unlock()
			return nil
		})
	}

	fmt.Printf("Firing %d simultaneous requests\n", cfg.Size)
	close(start)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func send(ctx context.Context, client *http.Client, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (r Result) Report(w io.Writer) error {
	codes := make([]int, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	for _, code := range codes {
		label := http.StatusText(code)
		if code == 0 {
			label = "transport error"
		}
		if _, err := fmt.Fprintf(w, "%3d %-24s %d\n", code, label, r[code]); err != nil {
			return err
		}
	}
	return nil
}
