// Package storage hosts product images.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/example/storefront/pkg/models"
)

// ImageStore uploads an image and returns the URL clients load it from.
type ImageStore interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// objectKey gives every upload a unique key while keeping the extension.
func objectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("products/%s%s", models.NewID(), ext)
}

// Memory keeps uploads in process. It backs the memory storage driver and
// tests.
type Memory struct {
	baseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (m *Memory) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	key := objectKey(filename)

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	return m.baseURL + "/" + key, nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
