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

package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/coursevault/coursevault/pkg/clock"
)

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore. It is suitable for tests and
// single-node deployments.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	clock    clock.Clock
}

// NewMemoryStore returns a new MemoryStore using the given clock
func NewMemoryStore(c clock.Clock) *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memoryCounter),
		clock:    c,
	}
}

// get returns the live counter for key, dropping it if expired.
// Callers must hold mu.
func (s *MemoryStore) get(key string) *memoryCounter {
	c, ok := s.counters[key]
	if !ok {
		return nil
	}
	if !s.clock.Now().Before(c.expiresAt) {
		delete(s.counters, key)
		return nil
	}

	return c
}

// Increment implements CounterStore
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	if c == nil {
		c = &memoryCounter{expiresAt: s.clock.Now().Add(window)}
		s.counters[key] = c
	}
	c.count++

	return c.count, nil
}

// Count implements CounterStore
func (s *MemoryStore) Count(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	if c == nil {
		return 0, nil
	}

	return c.count, nil
}

// TTL implements CounterStore
func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	if c == nil {
		return 0, nil
	}

	return c.expiresAt.Sub(s.clock.Now()), nil
}

// Clear implements CounterStore
func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)

	return nil
}
