// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytsync/internal/models"
)

// FetchCall records one request made to a [MockFetcher].
type FetchCall struct {
	Kind  models.Kind
	ID    string
	Since string
}

// MockFetcher is a test double for the sync engine's fetcher.
//
// Snapshots are keyed by resource ID. Incremental (since != "") requests are answered from
// Incremental when present, otherwise with an empty snapshot of the requested kind.
// Safe for concurrent use.
type MockFetcher struct {
	Full        map[string]*models.RemoteSnapshot
	Incremental map[string]*models.RemoteSnapshot
	Videos      map[string]*models.Video
	Errs        map[string]error // Returned for any request on the given ID

	mu    sync.Mutex
	calls []FetchCall
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Full:        map[string]*models.RemoteSnapshot{},
		Incremental: map[string]*models.RemoteSnapshot{},
		Videos:      map[string]*models.Video{},
		Errs:        map[string]error{},
	}
}

func (m *MockFetcher) FetchChannel(ctx context.Context, id, since string) (*models.RemoteSnapshot, error) {
	return m.fetch(ctx, models.KindChannel, id, since)
}

func (m *MockFetcher) FetchPlaylist(ctx context.Context, id, since string) (*models.RemoteSnapshot, error) {
	return m.fetch(ctx, models.KindPlaylist, id, since)
}

func (m *MockFetcher) FetchVideo(ctx context.Context, id string) (*models.Video, error) {
	m.record(FetchCall{Kind: models.KindVideo, ID: id})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[id]; ok {
		return nil, err
	}
	v, ok := m.Videos[id]
	if !ok {
		return nil, errors.New("video not found")
	}
	if v == nil {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (m *MockFetcher) fetch(ctx context.Context, kind models.Kind, id, since string) (*models.RemoteSnapshot, error) {
	m.record(FetchCall{Kind: kind, ID: id, Since: since})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[id]; ok {
		return nil, err
	}

	src := m.Full
	if since != "" {
		src = m.Incremental
		if _, ok := src[id]; !ok {
			return &models.RemoteSnapshot{Kind: kind, ID: id}, nil
		}
	}
	snap, ok := src[id]
	if !ok {
		return nil, errors.New("collection not found")
	}
	if snap == nil {
		return nil, nil
	}
	c := *snap
	c.Videos = append([]models.Video(nil), snap.Videos...)
	return &c, nil
}

func (m *MockFetcher) record(c FetchCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns a copy of the recorded requests in call order.
func (m *MockFetcher) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchCall(nil), m.calls...)
}

// CallCount returns the number of requests made for id.
func (m *MockFetcher) CallCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.ID == id {
			n++
		}
	}
	return n
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

// MustChdir switches into dir and restores the previous working directory when the test ends.
func MustChdir(t *testing.T, dir string) {
	t.Helper()
	prev := MustGetwd(t)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
