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
	"testing"
	"time"

	"github.com/coursevault/coursevault/pkg/assert"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/mailer"
	"github.com/coursevault/coursevault/pkg/server/testutils"
	"github.com/coursevault/coursevault/pkg/server/vcode"
	"github.com/pkg/errors"
)

// wrongCode returns a 6-digit value different from the given code
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func activeCode(t *testing.T, a *App, userID int, purpose string) database.VerificationCode {
	t.Helper()

	code, err := vcode.GetActive(a.DB, userID, purpose)
	if err != nil {
		t.Fatal(errors.Wrap(err, "finding active code"))
	}

	return code
}

func TestVerifyEmail(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	result, err := a.VerifyEmail("alice@example.com", code.Code)
	if err != nil {
		t.Fatal(errors.Wrap(err, "verifying email"))
	}
	assert.NotEqual(t, result.AccessToken, "", "access token should be issued on verification")
	assert.NotEqual(t, result.RefreshToken, "", "refresh token should be issued on verification")

	var updated database.User
	testutils.MustExec(t, db.First(&updated, user.ID), "finding user")
	assert.Equal(t, updated.EmailVerified, true, "email should be verified")

	var consumed database.VerificationCode
	testutils.MustExec(t, db.First(&consumed, code.ID), "finding code")
	assert.Equal(t, consumed.Used, true, "code should be consumed")

	// verification email + welcome email
	emails := fx.Emails.WaitForEmails(t, 2, time.Second)
	assert.Equal(t, emails[1].TemplateType, mailer.EmailTypeWelcome, "welcome email should follow verification")
}

func TestVerifyEmail_wrongCode(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	_, err = a.VerifyEmail("alice@example.com", wrongCode(code.Code))
	assert.Equal(t, errors.Is(err, ErrCodeMismatch), true, "error mismatch")

	// The attempt must be recorded despite the failure
	var updated database.VerificationCode
	testutils.MustExec(t, db.First(&updated, code.ID), "finding code")
	assert.Equal(t, updated.Attempts, 1, "attempt should be counted")
	assert.Equal(t, updated.Used, false, "code should still be active")

	var u database.User
	testutils.MustExec(t, db.First(&u, user.ID), "finding user")
	assert.Equal(t, u.EmailVerified, false, "email should not be verified")
}

func TestVerifyEmail_attemptsExhausted(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)
	wrong := wrongCode(code.Code)

	for i := 0; i < vcode.MaxAttempts; i++ {
		_, err := a.VerifyEmail("alice@example.com", wrong)
		assert.Equal(t, errors.Is(err, ErrCodeMismatch), true, "attempt should fail with a mismatch")
	}

	// The correct code no longer works once attempts ran out
	_, err = a.VerifyEmail("alice@example.com", code.Code)
	assert.Equal(t, errors.Is(err, ErrCodeAttemptsExceeded), true, "error mismatch")

	var updated database.VerificationCode
	testutils.MustExec(t, db.First(&updated, code.ID), "finding code")
	assert.Equal(t, updated.Used, true, "exhausted code should be retired")

	// With the code retired, further submissions see no active code
	_, err = a.VerifyEmail("alice@example.com", code.Code)
	assert.Equal(t, errors.Is(err, ErrNoActiveCode), true, "error mismatch")
}

func TestVerifyEmail_expiredCode(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	fx.Clock.Advance(vcode.DefaultTTL + time.Second)

	_, err = a.VerifyEmail("alice@example.com", code.Code)
	assert.Equal(t, errors.Is(err, ErrCodeExpired), true, "error mismatch")

	var u database.User
	testutils.MustExec(t, db.First(&u, user.ID), "finding user")
	assert.Equal(t, u.EmailVerified, false, "email should not be verified")
}

func TestVerifyEmail_alreadyVerified(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	if _, err := a.VerifyEmail("alice@example.com", code.Code); err != nil {
		t.Fatal(errors.Wrap(err, "verifying email"))
	}

	_, err = a.VerifyEmail("alice@example.com", code.Code)
	assert.Equal(t, errors.Is(err, ErrAlreadyVerified), true, "error mismatch")
}

func TestVerifyEmail_invalidFormat(t *testing.T) {
	testCases := []string{"", "123", "1234567", "12345a", "abcdef", "12 456"}

	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	for _, tc := range testCases {
		_, err := a.VerifyEmail("alice@example.com", tc)
		assert.Equal(t, errors.Is(err, ErrCodeInvalidFormat), true, "error mismatch")
	}

	// Malformed input is rejected before the state machine, so no
	// attempts are consumed
	var updated database.VerificationCode
	testutils.MustExec(t, db.First(&updated, code.ID), "finding code")
	assert.Equal(t, updated.Attempts, 0, "malformed submissions should not consume attempts")
}

func TestVerifyEmail_noActiveCode(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	testutils.SetupUserData(db, "alice@example.com", "pass1234")

	_, err := a.VerifyEmail("alice@example.com", "123456")
	assert.Equal(t, errors.Is(err, ErrNoActiveCode), true, "error mismatch")
}

func TestVerifyEmail_unknownEmail(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	_, err := a.VerifyEmail("ghost@example.com", "123456")
	assert.Equal(t, errors.Is(err, ErrNotFound), true, "error mismatch")
}

func TestResendVerificationCode(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	user, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}
	first := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	if err := a.ResendVerificationCode(ctx, "alice@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "resending code"))
	}

	// The old code is superseded
	var old database.VerificationCode
	testutils.MustExec(t, db.First(&old, first.ID), "finding old code")
	assert.Equal(t, old.Used, true, "previous code should be invalidated")

	var activeCount int64
	testutils.MustExec(t, db.Model(&database.VerificationCode{}).
		Where("user_id = ? AND used = ?", user.ID, false).
		Count(&activeCount), "counting active codes")
	assert.Equal(t, activeCount, int64(1), "exactly one active code should exist")

	emails := fx.Emails.WaitForEmails(t, 2, time.Second)
	assert.Equal(t, emails[1].TemplateType, mailer.EmailTypeVerification, "email type mismatch")
}

func TestResendVerificationCode_rateLimited(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	if _, err := a.CreateUser("alice", "alice@example.com", "pass1234", "pass1234"); err != nil {
		t.Fatal(errors.Wrap(err, "creating user"))
	}

	for i := 0; i < 3; i++ {
		if err := a.ResendVerificationCode(ctx, "alice@example.com", ""); err != nil {
			t.Fatal(errors.Wrap(err, "resending code"))
		}
	}

	err := a.ResendVerificationCode(ctx, "alice@example.com", "")

	var rle RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rle.RetryAfter <= 0 {
		t.Errorf("retry-after should be positive, got %v", rle.RetryAfter)
	}

	// The window expiring makes resends possible again
	fx.Clock.Advance(time.Hour + time.Second)
	if err := a.ResendVerificationCode(ctx, "alice@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "resending code after window"))
	}
}

func TestResendVerificationCode_separateResetCounter(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	// Exhaust the resend bucket
	for i := 0; i < 3; i++ {
		if err := a.ResendVerificationCode(ctx, "alice@example.com", ""); err != nil {
			t.Fatal(errors.Wrap(err, "resending code"))
		}
	}
	err := a.ResendVerificationCode(ctx, "alice@example.com", "")
	var rle RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}

	// Password reset requests count against their own bucket
	if err := a.RequestPasswordReset(ctx, "alice@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "requesting reset"))
	}
}

func TestRequestPasswordReset_rateLimited(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	for i := 0; i < 3; i++ {
		if err := a.RequestPasswordReset(ctx, "alice@example.com", ""); err != nil {
			t.Fatal(errors.Wrap(err, "requesting reset"))
		}
	}

	err := a.RequestPasswordReset(ctx, "alice@example.com", "")
	var rle RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}

	// Exhausted reset requests do not block verification resends
	if err := a.ResendVerificationCode(ctx, "alice@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "resending code"))
	}
}

func TestResendVerificationCode_idempotencyKey(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

	if err := a.ResendVerificationCode(ctx, "alice@example.com", "retry-1"); err != nil {
		t.Fatal(errors.Wrap(err, "resending code"))
	}
	first := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	// A retried request with the same key keeps the code intact
	if err := a.ResendVerificationCode(ctx, "alice@example.com", "retry-1"); err != nil {
		t.Fatal(errors.Wrap(err, "retrying resend"))
	}
	second := activeCode(t, a, user.ID, database.VerificationPurposeEmail)
	assert.Equal(t, second.ID, first.ID, "retry should not supersede the code")
	assert.Equal(t, second.Code, first.Code, "code value should be unchanged")
}

func TestResendVerificationCode_unknownEmail(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	// No account enumeration: a missing account is a quiet success
	if err := a.ResendVerificationCode(ctx, "ghost@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "resending code"))
	}

	a.Dispatcher.Wait()

	var count int64
	testutils.MustExec(t, db.Model(&database.VerificationCode{}).Count(&count), "counting codes")
	assert.Equal(t, count, int64(0), "no code should be created")
}

func TestPasswordReset(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	if err := a.RequestPasswordReset(ctx, "alice@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "requesting reset"))
	}

	emails := fx.Emails.WaitForEmails(t, 1, time.Second)
	assert.Equal(t, emails[0].TemplateType, mailer.EmailTypeResetPassword, "email type mismatch")

	code := activeCode(t, a, user.ID, database.VerificationPurposeResetPassword)

	// An existing session gets revoked by the reset
	login, err := a.Login(ctx, "alice@example.com", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "logging in"))
	}

	if err := a.ConfirmPasswordReset(ctx, "alice@example.com", code.Code, "newpass1234"); err != nil {
		t.Fatal(errors.Wrap(err, "confirming reset"))
	}

	_, err = a.RefreshSession(login.RefreshToken)
	assert.Equal(t, errors.Is(err, ErrInvalidSession), true, "sessions should be revoked on reset")

	if _, err := a.Login(ctx, "alice@example.com", "newpass1234"); err != nil {
		t.Fatal(errors.Wrap(err, "logging in with the new password"))
	}
	_, err = a.Login(ctx, "alice@example.com", "pass1234")
	assert.Equal(t, errors.Is(err, ErrLoginInvalid), true, "old password should stop working")
}

func TestPasswordReset_wrongCode(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	if err := a.RequestPasswordReset(ctx, "alice@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "requesting reset"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeResetPassword)

	err := a.ConfirmPasswordReset(ctx, "alice@example.com", wrongCode(code.Code), "newpass1234")
	assert.Equal(t, errors.Is(err, ErrCodeMismatch), true, "error mismatch")

	// The old password is untouched
	if _, err := a.Login(ctx, "alice@example.com", "pass1234"); err != nil {
		t.Fatal(errors.Wrap(err, "logging in with the old password"))
	}
}

func TestPasswordReset_unknownEmail(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	// No account enumeration on the request path
	if err := a.RequestPasswordReset(ctx, "ghost@example.com", ""); err != nil {
		t.Fatal(errors.Wrap(err, "requesting reset"))
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	user, err := a.CreateUser("alice", "a@x.com", "pass1234", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "registering"))
	}
	code := activeCode(t, a, user.ID, database.VerificationPurposeEmail)

	// Login before verification is gated
	_, err = a.Login(ctx, "a@x.com", "pass1234")
	var enve EmailNotVerifiedError
	if !errors.As(err, &enve) {
		t.Fatalf("expected EmailNotVerifiedError, got %v", err)
	}

	// One wrong code consumes an attempt but keeps the code active
	_, err = a.VerifyEmail("a@x.com", wrongCode(code.Code))
	assert.Equal(t, errors.Is(err, ErrCodeMismatch), true, "error mismatch")

	// The correct code verifies and signs the user in right away
	verified, err := a.VerifyEmail("a@x.com", code.Code)
	if err != nil {
		t.Fatal(errors.Wrap(err, "verifying email"))
	}
	assert.NotEqual(t, verified.AccessToken, "", "verification should issue an access token")

	result, err := a.Login(ctx, "a@x.com", "pass1234")
	if err != nil {
		t.Fatal(errors.Wrap(err, "logging in"))
	}
	assert.NotEqual(t, result.AccessToken, "", "access token should be issued")
	assert.NotEqual(t, result.RefreshToken, "", "refresh token should be issued")
}
