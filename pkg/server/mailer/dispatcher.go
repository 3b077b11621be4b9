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

package mailer

import (
	"sync"
	"time"

	"github.com/coursevault/coursevault/pkg/server/log"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 10 * time.Second
)

// Dispatcher sends emails asynchronously with bounded retries. Delivery is
// best-effort: callers never block on it and never see its errors, so a
// failed send must not affect the state transition that triggered it.
type Dispatcher struct {
	backend     Backend
	maxAttempts int
	baseBackoff time.Duration
	wg          sync.WaitGroup
}

// NewDispatcher returns a Dispatcher over the given backend
func NewDispatcher(backend Backend) *Dispatcher {
	return &Dispatcher{
		backend:     backend,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
	}
}

// NewDispatcherWithRetry returns a Dispatcher with custom retry parameters
func NewDispatcherWithRetry(backend Backend, maxAttempts int, baseBackoff time.Duration) *Dispatcher {
	return &Dispatcher{
		backend:     backend,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

// Dispatch queues the email for delivery and returns immediately
func (d *Dispatcher) Dispatch(templateType, from string, to []string, data interface{}) {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		var err error
		for attempt := 1; attempt <= d.maxAttempts; attempt++ {
			err = d.backend.SendEmail(templateType, from, to, data)
			if err == nil {
				return
			}

			log.WithFields(log.Fields{
				"type":    templateType,
				"attempt": attempt,
				"err":     err,
			}).Warn("email delivery failed")

			if attempt < d.maxAttempts {
				time.Sleep(d.baseBackoff * time.Duration(attempt))
			}
		}

		log.WithFields(log.Fields{
			"type": templateType,
			"to":   to,
		}).ErrorWrap(err, "giving up on email delivery")
	}()
}

// Wait blocks until all queued deliveries have finished. It is used in
// tests and during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
