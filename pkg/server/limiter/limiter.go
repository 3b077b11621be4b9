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

// Package limiter provides fixed-window counters over an expiring key-value
// store. It backs login lockout and code-resend throttling.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// CounterStore is an expiring counter store. Increment must be atomic: two
// concurrent calls for the same key must never observe the same count.
type CounterStore interface {
	// Increment adds 1 to the counter under key and returns the new count.
	// The expiry window starts when the key is first created and is not
	// extended by later increments.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Count returns the current count, or 0 if the key is absent or expired.
	Count(ctx context.Context, key string) (int64, error)
	// TTL returns the remaining window for the key, or 0 if absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Clear removes the counter under key.
	Clear(ctx context.Context, key string) error
}

// Result is the outcome of a CheckAndIncrement call
type Result struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Limiter applies limits to keyed counters backed by a CounterStore
type Limiter struct {
	store CounterStore
}

// New returns a new Limiter
func New(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// CheckAndIncrement counts the current call against the key and reports
// whether it is within the limit. The increment happens unconditionally so
// that repeated over-limit calls keep being observed.
func (l *Limiter) CheckAndIncrement(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	count, err := l.store.Increment(ctx, key, window)
	if err != nil {
		return Result{}, errors.Wrap(err, "incrementing counter")
	}

	res := Result{
		Allowed: count <= limit,
		Count:   count,
	}

	if !res.Allowed {
		ttl, err := l.store.TTL(ctx, key)
		if err != nil {
			return Result{}, errors.Wrap(err, "reading counter ttl")
		}
		res.RetryAfter = ttl
	}

	return res, nil
}

// AtLimit reports whether the key has already reached the limit, without
// counting the current call. It returns the remaining window when locked.
func (l *Limiter) AtLimit(ctx context.Context, key string, limit int64) (bool, time.Duration, error) {
	count, err := l.store.Count(ctx, key)
	if err != nil {
		return false, 0, errors.Wrap(err, "reading counter")
	}
	if count < limit {
		return false, 0, nil
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return false, 0, errors.Wrap(err, "reading counter ttl")
	}

	return true, ttl, nil
}

// Clear resets the counter for the key. It is called on successful terminal
// actions such as a successful login.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	if err := l.store.Clear(ctx, key); err != nil {
		return errors.Wrap(err, "clearing counter")
	}

	return nil
}

// LoginKey returns the counter key for login attempts for the given email
func LoginKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", email)
}

// ResendKey returns the counter key for verification code resends for the given email
func ResendKey(email string) string {
	return fmt.Sprintf("resend_code:%s", email)
}

// ResetKey returns the counter key for password reset requests for the given email
func ResetKey(email string) string {
	return fmt.Sprintf("password_reset:%s", email)
}
