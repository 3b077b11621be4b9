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

// Package testutils provides utilities used in tests
package testutils

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitMemoryDB creates an in-memory SQLite database with the schema initialized
func InitMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A unique name per test keeps the shared-cache databases isolated
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}

	database.InitSchema(db)

	return db
}

// SetupUserData creates and returns a new user for testing purposes
func SetupUserData(db *gorm.DB, email, password string) database.User {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(errors.Wrap(err, "hashing password"))
	}

	user := database.User{
		UUID:     uuid.NewString(),
		Email:    email,
		Name:     "Test User",
		Password: database.ToNullString(string(hashedPassword)),
	}
	if err := db.Save(&user).Error; err != nil {
		panic(errors.Wrap(err, "saving user"))
	}

	return user
}

// SetupVerifiedUserData creates a user whose email is already verified
func SetupVerifiedUserData(db *gorm.DB, email, password string) database.User {
	user := SetupUserData(db, email, password)

	if err := db.Model(&user).Update("email_verified", true).Error; err != nil {
		panic(errors.Wrap(err, "marking user verified"))
	}
	user.EmailVerified = true

	return user
}

// SetupFolderData creates and returns a folder owned by the given user
func SetupFolderData(db *gorm.DB, user database.User, title string, parentID *int) database.Folder {
	folder := database.Folder{
		Title:      title,
		Slug:       fmt.Sprintf("%s-%s", strings.ToLower(title), uuid.NewString()[:8]),
		UserID:     user.ID,
		ParentID:   parentID,
		ShareToken: uuid.NewString(),
	}
	if err := db.Save(&folder).Error; err != nil {
		panic(errors.Wrap(err, "saving folder"))
	}

	return folder
}

// SetupFileData creates and returns a file in the given folder
func SetupFileData(db *gorm.DB, folder database.Folder, title string) database.File {
	file := database.File{
		FolderID:   folder.ID,
		Title:      title,
		BlobKey:    fmt.Sprintf("pdfs/%s", uuid.NewString()),
		ShareToken: uuid.NewString(),
	}
	if err := db.Save(&file).Error; err != nil {
		panic(errors.Wrap(err, "saving file"))
	}

	return file
}

// MustExec fails the test if the given database query has error
func MustExec(t *testing.T, db *gorm.DB, message string) {
	t.Helper()

	if err := db.Error; err != nil {
		t.Fatalf("%s: %s", message, err.Error())
	}
}

// MockEmail is an email captured by MockEmailBackend
type MockEmail struct {
	TemplateType string
	From         string
	To           []string
	Data         interface{}
}

// MockEmailBackend records emails in memory instead of sending them
type MockEmailBackend struct {
	mu     sync.Mutex
	Emails []MockEmail
}

// SendEmail implements mailer.Backend
func (b *MockEmailBackend) SendEmail(templateType, from string, to []string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Emails = append(b.Emails, MockEmail{
		TemplateType: templateType,
		From:         from,
		To:           to,
		Data:         data,
	})

	return nil
}

// Sent returns a copy of the captured emails
func (b *MockEmailBackend) Sent() []MockEmail {
	b.mu.Lock()
	defer b.mu.Unlock()

	ret := make([]MockEmail, len(b.Emails))
	copy(ret, b.Emails)

	return ret
}

// WaitForEmails polls until the backend has captured at least n emails or
// the timeout elapses. Dispatch is asynchronous, so tests need to wait.
func (b *MockEmailBackend) WaitForEmails(t *testing.T, n int, timeout time.Duration) []MockEmail {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		emails := b.Sent()
		if len(emails) >= n {
			return emails
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d emails, got %d", n, len(emails))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// HTTPDo makes an HTTP request and returns a response
func HTTPDo(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	hc := http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	res, err := hc.Do(req)
	if err != nil {
		t.Fatal(errors.Wrap(err, "performing http request"))
	}

	return res
}

// MakeReq makes an HTTP request with a JSON body
func MakeReq(endpoint, method, path, data string) *http.Request {
	u := fmt.Sprintf("%s%s", endpoint, path)

	req, err := http.NewRequest(method, u, strings.NewReader(data))
	if err != nil {
		panic(errors.Wrap(err, "constructing http request"))
	}
	req.Header.Set("Content-Type", "application/json")

	return req
}
