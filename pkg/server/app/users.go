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
	"strings"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/limiter"
	"github.com/coursevault/coursevault/pkg/server/log"
	"github.com/coursevault/coursevault/pkg/server/vcode"
	"github.com/google/uuid"
	pkgErrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NormalizeEmail lowercases and trims the given email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TouchLastLoginAt updates the last login timestamp
func (a *App) TouchLastLoginAt(user database.User, tx *gorm.DB) error {
	t := a.Clock.Now()
	if err := tx.Model(&user).Update("last_login_at", &t).Error; err != nil {
		return pkgErrors.Wrap(err, "updating last_login_at")
	}

	return nil
}

// CreateUser registers a user and creates their email verification code.
// The verification email is dispatched asynchronously; registration
// succeeds whether or not the delivery does.
func (a *App) CreateUser(name, email, password, passwordConfirmation string) (database.User, error) {
	email = NormalizeEmail(email)

	if email == "" {
		return database.User{}, ErrEmailRequired
	}
	if name == "" {
		return database.User{}, ErrNameRequired
	}
	if len(password) < 8 {
		return database.User{}, ErrPasswordTooShort
	}
	if password != passwordConfirmation {
		return database.User{}, ErrPasswordConfirmationMismatch
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return database.User{}, pkgErrors.Wrap(err, "hashing password")
	}

	var user database.User
	var code database.VerificationCode

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return pkgErrors.Wrap(err, "counting user")
		}
		if count > 0 {
			return ErrDuplicateEmail
		}

		user = database.User{
			UUID:     uuid.NewString(),
			Email:    email,
			Name:     name,
			Password: database.ToNullString(string(hashedPassword)),
		}
		if err := tx.Create(&user).Error; err != nil {
			return pkgErrors.Wrap(err, "saving user")
		}

		code, err = vcode.Create(tx, a.Clock, user.ID, database.VerificationPurposeEmail, 0)
		if err != nil {
			return pkgErrors.Wrap(err, "creating verification code")
		}

		return nil
	})
	if err != nil {
		return database.User{}, err
	}

	a.SendVerificationEmail(user, code)

	return user, nil
}

// GetUserByEmail finds a user by their email address
func (a *App) GetUserByEmail(email string) (database.User, error) {
	email = NormalizeEmail(email)

	var user database.User
	err := a.DB.Where("email = ?", email).First(&user).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return database.User{}, ErrNotFound
	}
	if err != nil {
		return database.User{}, pkgErrors.Wrap(err, "finding user")
	}

	return user, nil
}

// UserSummary is the minimal user representation returned to clients
type UserSummary struct {
	ID    int    `json:"id"`
	UUID  string `json:"uuid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewUserSummary builds a UserSummary from the user record
func NewUserSummary(user database.User) UserSummary {
	return UserSummary{
		ID:    user.ID,
		UUID:  user.UUID,
		Email: user.Email,
		Name:  user.Name,
	}
}

// LoginResult is a token pair with the authenticated user's summary
type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

// penalizeLogin counts a failed credential check against the login counter
// and returns the matching InvalidCredentialsError.
func (a *App) penalizeLogin(ctx context.Context, key string) error {
	res, err := a.Limiter.CheckAndIncrement(ctx, key, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		return pkgErrors.Wrap(err, "counting failed login")
	}

	remaining := loginAttemptLimit - res.Count
	if remaining < 0 {
		remaining = 0
	}

	return InvalidCredentialsError{AttemptsRemaining: remaining}
}

// Login validates credentials and issues a token pair. Lockout is checked
// before the credential check so that a locked account reveals nothing about
// the submitted password. The password is checked before the verified-email
// gate; a wrong password always yields invalid credentials regardless of
// verification state, and the verification gate never counts against the
// lockout counter.
func (a *App) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	key := limiter.LoginKey(email)

	locked, retryAfter, err := a.Limiter.AtLimit(ctx, key, loginAttemptLimit)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "checking lockout")
	}
	if locked {
		return nil, AccountLockedError{RetryAfter: retryAfter}
	}

	var user database.User
	err = a.DB.Where("email = ?", email).First(&user).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		// Burn a bcrypt comparison so a missing account takes as long as a
		// wrong password.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, a.penalizeLogin(ctx, key)
	}
	if err != nil {
		return nil, pkgErrors.Wrap(err, "finding user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password.String), []byte(password)); err != nil {
		return nil, a.penalizeLogin(ctx, key)
	}

	if !user.EmailVerified {
		return nil, EmailNotVerifiedError{Email: user.Email}
	}

	if err := a.Limiter.Clear(ctx, key); err != nil {
		log.ErrorWrap(err, "clearing login counter")
	}

	if err := a.TouchLastLoginAt(user, a.DB); err != nil {
		log.ErrorWrap(err, "touching login timestamp")
	}

	return a.IssueTokens(user)
}

// IssueTokens returns a fresh access/refresh token pair for the user
func (a *App) IssueTokens(user database.User) (*LoginResult, error) {
	session, err := a.CreateSession(user.ID)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "creating session")
	}

	access, err := a.TokenIssuer.Issue(user.ID)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "issuing access token")
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: session.Key,
		User:         NewUserSummary(user),
	}, nil
}

// dummyHash is a bcrypt hash compared against when the account does not
// exist, to keep response timing independent of account existence.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// UpdateUserPassword hashes and updates the user's password
func UpdateUserPassword(db *gorm.DB, user *database.User, password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return pkgErrors.Wrap(err, "hashing password")
	}

	if err := db.Model(user).Update("password", database.ToNullString(string(hashedPassword))).Error; err != nil {
		return pkgErrors.Wrap(err, "updating password")
	}

	return nil
}

// UpdateProfile updates the user's name and email. Changing the email
// resets the verified flag and issues a fresh verification code for the
// new address.
func (a *App) UpdateProfile(user *database.User, name, email string) error {
	email = NormalizeEmail(email)

	if email == "" {
		return ErrEmailRequired
	}
	if name == "" {
		return ErrNameRequired
	}

	emailChanged := email != user.Email

	var code database.VerificationCode

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if emailChanged {
			var count int64
			if err := tx.Model(&database.User{}).
				Where("email = ? AND id <> ?", email, user.ID).
				Count(&count).Error; err != nil {
				return pkgErrors.Wrap(err, "counting user")
			}
			if count > 0 {
				return ErrDuplicateEmail
			}
		}

		updates := map[string]interface{}{
			"name":  name,
			"email": email,
		}
		if emailChanged {
			updates["email_verified"] = false
		}
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return pkgErrors.Wrap(err, "updating profile")
		}

		if emailChanged {
			var err error
			code, err = vcode.Create(tx, a.Clock, user.ID, database.VerificationPurposeEmail, 0)
			if err != nil {
				return pkgErrors.Wrap(err, "creating verification code")
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if emailChanged {
		a.SendVerificationEmail(*user, code)
	}

	return nil
}
