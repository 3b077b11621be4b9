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

package app

import (
	"github.com/coursevault/coursevault/pkg/clock"
	"github.com/coursevault/coursevault/pkg/server/limiter"
	"github.com/coursevault/coursevault/pkg/server/mailer"
	"github.com/coursevault/coursevault/pkg/server/storage"
	"github.com/coursevault/coursevault/pkg/server/testutils"
	"github.com/coursevault/coursevault/pkg/server/token"
	"gorm.io/gorm"
)

// TestFixtures exposes the fakes behind a test App so tests can move time,
// inspect captured emails, and check the blob store.
type TestFixtures struct {
	Clock   *clock.Mock
	Emails  *testutils.MockEmailBackend
	Storage *storage.Memory
}

// NewTest returns an App wired with in-memory fakes for use in tests
func NewTest(db *gorm.DB) (*App, *TestFixtures) {
	c := clock.NewMock()
	emails := &testutils.MockEmailBackend{}
	store := storage.NewMemory()

	a := &App{
		DB:          db,
		Clock:       c,
		Dispatcher:  mailer.NewDispatcherWithRetry(emails, 1, 0),
		Limiter:     limiter.New(limiter.NewMemoryStore(c)),
		TokenIssuer: token.NewIssuer([]byte("test-token-secret"), 0, c),
		Storage:     store,
		BaseURL:     "https://coursevault.test",
	}

	return a, &TestFixtures{
		Clock:   c,
		Emails:  emails,
		Storage: store,
	}
}
