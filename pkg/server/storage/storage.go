/* Copyright 2025 CourseVault Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package storage provides access to the blob store holding uploaded documents
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Driver is an interface to a blob store
type Driver interface {
	// Put stores the given bytes under the key
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the object under the key. Deleting a missing object
	// is not an error.
	Delete(ctx context.Context, key string) error
	// Presign returns a time-limited URL granting read access to the object
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewObjectKey returns a fresh storage key for an uploaded document
func NewObjectKey() string {
	d := time.Now()
	return fmt.Sprintf("pdfs/%d/%02d/%s", d.Year(), d.Month(), uuid.NewString())
}

// Memory is an in-process Driver used in tests
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

// NewMemory returns a new in-memory Driver
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put implements Driver
func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := make([]byte, len(data))
	copy(b, data)
	m.objects[key] = b

	return nil
}

// Delete implements Driver
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	m.deleted = append(m.deleted, key)

	return nil
}

// Presign implements Driver
func (m *Memory) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("memory://%s?ttl=%d", key, int(ttl.Seconds())), nil
}

// Deleted returns the keys deleted so far, in order
func (m *Memory) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]string, len(m.deleted))
	copy(ret, m.deleted)

	return ret
}

// Has reports whether an object exists under the key
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[key]
	return ok
}
