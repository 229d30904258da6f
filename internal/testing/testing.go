// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
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

// SolidImage returns a w x h image filled with c
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

// GradientImage returns a w x h image with a diagonal gradient and fine noise, which compresses poorly
func GradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / max(w-1, 1)),
				G: uint8((y * 255) / max(h-1, 1)),
				B: uint8((x*31 + y*17) % 256),
				A: 255,
			})
		}
	}
	return img
}

// EncodePNG encodes img as PNG, failing the test on error
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// FakeLoader serves images by URL and records each request.
//
// A URL present in Gates blocks until its channel is closed or the context is done.
type FakeLoader struct {
	mu     sync.Mutex
	Images map[string]image.Image
	Gates  map[string]chan struct{}
	calls  []string
}

// NewFakeLoader creates a [FakeLoader] serving images
func NewFakeLoader(images map[string]image.Image) *FakeLoader {
	return &FakeLoader{Images: images, Gates: map[string]chan struct{}{}}
}

// Gate makes loads of url block until [FakeLoader.Release] is called
func (f *FakeLoader) Gate(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gates[url] = make(chan struct{})
}

// Release unblocks loads of url
func (f *FakeLoader) Release(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.Gates[url]; ok {
		close(ch)
		delete(f.Gates, url)
	}
}

func (f *FakeLoader) Load(ctx context.Context, url string) (image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	gate := f.Gates[url]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.Images[url]
	if !ok {
		return nil, fmt.Errorf("no image for %s", url)
	}
	return img, nil
}

// Calls returns the URLs requested so far
func (f *FakeLoader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
