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
	"context"
	"crypto/subtle"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/limiter"
	"github.com/coursevault/coursevault/pkg/server/vcode"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

func validCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

// checkCode runs the code state machine for one submission inside tx. It
// returns the business outcome as an error, or nil when the code matched
// and was consumed. Attempt increments and forced consumption must commit
// even when the outcome is a failure, so the caller must not roll back on
// a business error from this function.
func (a *App) checkCode(tx *gorm.DB, userID int, purpose, submitted string) error {
	code, err := vcode.GetActive(tx, userID, purpose)
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoActiveCode
	}
	if err != nil {
		return pkgErrors.Wrap(err, "finding active code")
	}

	now := a.Clock.Now()

	switch vcode.StateOf(code, now) {
	case vcode.StateExpired:
		return ErrCodeExpired
	case vcode.StateExhausted:
		// Out of attempts. Retire the code so later submissions see
		// ErrNoActiveCode until a new one is issued.
		if err := tx.Model(&code).Update("used", true).Error; err != nil {
			return pkgErrors.Wrap(err, "retiring exhausted code")
		}
		return ErrCodeAttemptsExceeded
	}

	// Every submission against an active code consumes an attempt,
	// match or not.
	code.Attempts++
	if err := tx.Model(&code).Update("attempts", code.Attempts).Error; err != nil {
		return pkgErrors.Wrap(err, "counting attempt")
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(submitted)) != 1 {
		return ErrCodeMismatch
	}

	// The affected-rows guard makes concurrent submissions of the same
	// correct code succeed exactly once.
	res := tx.Model(&database.VerificationCode{}).
		Where("id = ? AND used = ?", code.ID, false).
		Update("used", true)
	if res.Error != nil {
		return pkgErrors.Wrap(res.Error, "consuming code")
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveCode
	}

	return nil
}

// VerifyEmail validates a submitted verification code for the account with
// the given email and, on success, marks the email verified and issues a
// token pair so the client is signed in immediately. The caller is
// unauthenticated: a verification code only exists for accounts that cannot
// log in yet. Failed submissions still consume an attempt, which is why the
// transaction commits on business failures.
func (a *App) VerifyEmail(email, submitted string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !validCodeFormat(submitted) {
		return nil, ErrCodeInvalidFormat
	}

	var user database.User
	err := a.DB.Where("email = ?", email).First(&user).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pkgErrors.Wrap(err, "finding user")
	}
	if user.EmailVerified {
		return nil, ErrAlreadyVerified
	}

	var bizErr error

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		bizErr = a.checkCode(tx, user.ID, database.VerificationPurposeEmail, submitted)
		if bizErr != nil {
			// Commit the attempt increment; surface the outcome outside.
			switch {
			case pkgErrors.Is(bizErr, ErrCodeMismatch),
				pkgErrors.Is(bizErr, ErrCodeAttemptsExceeded):
				return nil
			default:
				return bizErr
			}
		}

		if err := tx.Model(&user).Update("email_verified", true).Error; err != nil {
			return pkgErrors.Wrap(err, "marking email verified")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if bizErr != nil {
		return nil, bizErr
	}

	user.EmailVerified = true

	a.SendWelcomeEmail(user)

	return a.IssueTokens(user)
}

// ResendVerificationCode issues a fresh verification code for the account
// with the given email and dispatches it. To avoid leaking which emails
// have accounts, a missing or already verified account is not an error.
// A repeated idempotencyKey returns the active code instead of superseding
// it; pass "" to always mint a fresh one.
func (a *App) ResendVerificationCode(ctx context.Context, email, idempotencyKey string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	res, err := a.Limiter.CheckAndIncrement(ctx, limiter.ResendKey(email), resendLimit, resendWindow)
	if err != nil {
		return pkgErrors.Wrap(err, "counting resend")
	}
	if !res.Allowed {
		return RateLimitedError{RetryAfter: res.RetryAfter}
	}

	var user database.User
	err = a.DB.Where("email = ?", email).First(&user).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgErrors.Wrap(err, "finding user")
	}
	if user.EmailVerified {
		return nil
	}

	var code database.VerificationCode
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = vcode.CreateWithKey(tx, a.Clock, user.ID, database.VerificationPurposeEmail, 0, idempotencyKey)
		if err != nil {
			return pkgErrors.Wrap(err, "creating verification code")
		}

		return nil
	})
	if err != nil {
		return err
	}

	a.SendVerificationEmail(user, code)

	return nil
}
