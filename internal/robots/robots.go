// Package robots implements the robots policy cache of §4.5: robots.txt is
// fetched and parsed at most once per host, cached for the crawl's lifetime,
// and failure to fetch (network error or non-200) is treated as allow-all
// with delay 0. Grounded on the teacher's crawler/crawlingrules.go
// (temoto/robotstxt backend) and the source's crawler/robots_parser.py
// (urllib.robotparser equivalent, single cache dict).
package robots

import (
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// entry is the cached policy for one host. A nil Group means no valid
// robots.txt was found, which is the allow-all-with-delay-0 case.
type entry struct {
	group *robotstxt.Group
}

// Cache fetches and caches robots.txt per host.
type Cache struct {
	client    *http.Client
	userAgent string

	mu      sync.Mutex
	entries map[string]*entry
	pending map[string]chan struct{}
}

// New builds a Cache. client is the short-lived HTTP client used only for
// the robots.txt bootstrap fetch (independent of the main fetch path's
// retries and rate limiting, per §4.5).
func New(client *http.Client, userAgent string) *Cache {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Cache{
		client:    client,
		userAgent: userAgent,
		entries:   make(map[string]*entry),
		pending:   make(map[string]chan struct{}),
	}
}

// fetch populates c.entries[host] at most once, even under concurrent
// callers for the same host: the first caller fetches while later callers
// for the same host wait on the same in-flight request.
func (c *Cache) fetch(host, scheme string) *entry {
	c.mu.Lock()
	if e, ok := c.entries[host]; ok {
		c.mu.Unlock()
		return e
	}
	if wait, inflight := c.pending[host]; inflight {
		c.mu.Unlock()
		<-wait
		c.mu.Lock()
		e := c.entries[host]
		c.mu.Unlock()
		return e
	}
	done := make(chan struct{})
	c.pending[host] = done
	c.mu.Unlock()

	e := c.fetchUncached(host, scheme)

	c.mu.Lock()
	c.entries[host] = e
	delete(c.pending, host)
	c.mu.Unlock()
	close(done)

	return e
}

func (c *Cache) fetchUncached(host, scheme string) *entry {
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		return &entry{}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return &entry{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &entry{}
	}

	body, err := robotstxt.FromResponse(resp)
	if err != nil {
		return &entry{}
	}

	return &entry{group: body.FindGroup(c.userAgent)}
}

// FromReader builds a robots Group directly from robots.txt content, used by
// tests that don't want to spin up an HTTP server.
func FromReader(r io.Reader, userAgent string) (*robotstxt.Group, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	return data.FindGroup(userAgent), nil
}

// Allowed reports whether rawURL may be fetched under userAgent's robots
// policy. A host with no parseable robots.txt allows everything.
func (c *Cache) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	e := c.fetch(u.Host, u.Scheme)
	if e.group == nil {
		return true
	}
	return e.group.Test(u.Path)
}

// CrawlDelay returns the robots-declared Crawl-delay for host, or 0 if none
// is declared or no valid robots.txt was found.
func (c *Cache) CrawlDelay(rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	e := c.fetch(u.Host, u.Scheme)
	if e.group == nil {
		return 0
	}
	return e.group.CrawlDelay
}
