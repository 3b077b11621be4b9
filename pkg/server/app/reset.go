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

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/limiter"
	"github.com/coursevault/coursevault/pkg/server/vcode"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// RequestPasswordReset issues a password reset code for the account with
// the given email and dispatches it. A missing account is not an error, so
// the endpoint reveals nothing about which emails have accounts. A repeated
// idempotencyKey returns the active code instead of superseding it; pass ""
// to always mint a fresh one.
func (a *App) RequestPasswordReset(ctx context.Context, email, idempotencyKey string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	// Reset requests are counted separately from verification resends so
	// one flow cannot starve the other.
	res, err := a.Limiter.CheckAndIncrement(ctx, limiter.ResetKey(email), resendLimit, resendWindow)
	if err != nil {
		return pkgErrors.Wrap(err, "counting reset request")
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

	var code database.VerificationCode
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = vcode.CreateWithKey(tx, a.Clock, user.ID, database.VerificationPurposeResetPassword, 0, idempotencyKey)
		if err != nil {
			return pkgErrors.Wrap(err, "creating reset code")
		}

		return nil
	})
	if err != nil {
		return err
	}

	a.SendPasswordResetEmail(user, code)

	return nil
}

// ConfirmPasswordReset validates a reset code and, on success, updates the
// password and revokes every session of the user.
func (a *App) ConfirmPasswordReset(ctx context.Context, email, submitted, password string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	if !validCodeFormat(submitted) {
		return ErrCodeInvalidFormat
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	var user database.User
	err := a.DB.Where("email = ?", email).First(&user).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoActiveCode
	}
	if err != nil {
		return pkgErrors.Wrap(err, "finding user")
	}

	var bizErr error

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		bizErr = a.checkCode(tx, user.ID, database.VerificationPurposeResetPassword, submitted)
		if bizErr != nil {
			switch {
			case pkgErrors.Is(bizErr, ErrCodeMismatch),
				pkgErrors.Is(bizErr, ErrCodeAttemptsExceeded):
				return nil
			default:
				return bizErr
			}
		}

		if err := UpdateUserPassword(tx, &user, password); err != nil {
			return err
		}

		return DeleteUserSessions(tx, user.ID)
	})
	if err != nil {
		return err
	}
	if bizErr != nil {
		return bizErr
	}

	// A fresh password is a successful terminal action for the lockout
	// counter.
	if err := a.Limiter.Clear(ctx, limiter.LoginKey(email)); err != nil {
		return pkgErrors.Wrap(err, "clearing login counter")
	}

	return nil
}
