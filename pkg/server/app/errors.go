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
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is an error for not found records
	ErrNotFound = errors.New("not found")
	// ErrEmailRequired is an error for missing email
	ErrEmailRequired = errors.New("email is required")
	// ErrNameRequired is an error for missing name
	ErrNameRequired = errors.New("name is required")
	// ErrPasswordRequired is an error for missing password
	ErrPasswordRequired = errors.New("password is required")
	// ErrPasswordTooShort is an error for a password that is too short
	ErrPasswordTooShort = errors.New("password should be longer than 8 characters")
	// ErrPasswordConfirmationMismatch is an error for password mismatch
	ErrPasswordConfirmationMismatch = errors.New("password confirmation mismatch")
	// ErrDuplicateEmail is an error for duplicate email
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrLoginInvalid is an error for invalid credentials
	ErrLoginInvalid = errors.New("invalid email or password")
	// ErrAlreadyVerified is an error for verifying an already verified email
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrNoActiveCode is an error for a missing active verification code
	ErrNoActiveCode = errors.New("no active verification code")
	// ErrCodeExpired is an error for an expired verification code
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeAttemptsExceeded is an error for an exhausted verification code
	ErrCodeAttemptsExceeded = errors.New("verification code attempts exceeded")
	// ErrCodeMismatch is an error for a wrong verification code
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrCodeInvalidFormat is an error for a malformed verification code
	ErrCodeInvalidFormat = errors.New("verification code must be 6 digits")
	// ErrTitleRequired is an error for a missing title
	ErrTitleRequired = errors.New("title is required")
	// ErrTagRequired is an error for a missing tag value
	ErrTagRequired = errors.New("tag is required")
	// ErrNotInTrash is an error for permanently deleting an item that is not in trash
	ErrNotInTrash = errors.New("item is not in trash")
	// ErrFolderCycle is an error for a folder parent assignment that would create a cycle
	ErrFolderCycle = errors.New("folder cannot be moved under its own descendant")
	// ErrFolderTooDeep is an error for exceeding the maximum folder nesting depth
	ErrFolderTooDeep = errors.New("folder nesting too deep")
	// ErrInvalidSession is an error for an invalid or expired refresh session
	ErrInvalidSession = errors.New("invalid session")
	// ErrExtractionTransition is an error for an illegal text extraction status change
	ErrExtractionTransition = errors.New("invalid text extraction status transition")
)

// AccountLockedError indicates too many failed login attempts
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e AccountLockedError) Error() string {
	return fmt.Sprintf("too many login attempts, try again in %d seconds", int(e.RetryAfter.Seconds()))
}

// InvalidCredentialsError indicates a failed credential check. It carries
// the number of attempts left before lockout; negative means unknown.
type InvalidCredentialsError struct {
	AttemptsRemaining int64
}

func (e InvalidCredentialsError) Error() string {
	return ErrLoginInvalid.Error()
}

// Is makes the error match ErrLoginInvalid under errors.Is
func (e InvalidCredentialsError) Is(target error) bool {
	return target == ErrLoginInvalid
}

// EmailNotVerifiedError indicates a login with correct credentials on an
// unverified account. It carries the email so the caller can route the
// client to the resend flow.
type EmailNotVerifiedError struct {
	Email string
}

func (e EmailNotVerifiedError) Error() string {
	return fmt.Sprintf("email %s is not verified", e.Email)
}

// RateLimitedError indicates a throttled operation
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, try again in %d seconds", int(e.RetryAfter.Seconds()))
}
