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

// Package vcode generates email verification codes
package vcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/coursevault/coursevault/pkg/clock"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	// DefaultTTL is how long a code stays valid after creation
	DefaultTTL = 10 * time.Minute
	// MaxAttempts is the number of validation attempts before a code is
	// forcibly marked used
	MaxAttempts = 3

	codeSpace = 1000000
)

// State is a lifecycle state of a verification code
type State string

const (
	// StateActive means the code is unused, unexpired and has attempts left
	StateActive State = "active"
	// StateExpired means the code is unused but past its expiry
	StateExpired State = "expired"
	// StateExhausted means the code ran out of attempts
	StateExhausted State = "exhausted"
	// StateConsumed means the code was used for a successful verification
	StateConsumed State = "consumed"
)

// GenerateValue draws a code uniformly from 000000-999999. Codes are not
// globally unique; they are only authoritative per user.
func GenerateValue() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", errors.Wrap(err, "reading random number")
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Create generates a new verification code for the user and purpose. It
// marks any previously unused codes for the same (user, purpose) pair used,
// so that exactly one active code is authoritative at any time. It must be
// called inside the transaction that owns the surrounding state change.
func Create(tx *gorm.DB, c clock.Clock, userID int, purpose string, ttl time.Duration) (database.VerificationCode, error) {
	return CreateWithKey(tx, c, userID, purpose, ttl, uuid.NewString())
}

// CreateWithKey is Create with a caller-supplied idempotency key. If the
// active code for the (user, purpose) pair already carries the same key,
// that code is returned unchanged instead of being superseded, so a client
// retrying a request does not burn its own code.
func CreateWithKey(tx *gorm.DB, c clock.Clock, userID int, purpose string, ttl time.Duration, key string) (database.VerificationCode, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if key == "" {
		key = uuid.NewString()
	}

	existing, err := GetActive(tx, userID, purpose)
	if err == nil && existing.Idempotency == key && StateOf(existing, c.Now()) == StateActive {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return database.VerificationCode{}, errors.Wrap(err, "finding active code")
	}

	err = tx.Model(&database.VerificationCode{}).
		Where("user_id = ? AND purpose = ? AND used = ?", userID, purpose, false).
		Update("used", true).Error
	if err != nil {
		return database.VerificationCode{}, errors.Wrap(err, "invalidating previous codes")
	}

	val, err := GenerateValue()
	if err != nil {
		return database.VerificationCode{}, errors.Wrap(err, "generating code value")
	}

	code := database.VerificationCode{
		UserID:      userID,
		Purpose:     purpose,
		Code:        val,
		ExpiresAt:   c.Now().Add(ttl),
		Idempotency: key,
	}
	if err := tx.Create(&code).Error; err != nil {
		return database.VerificationCode{}, errors.Wrap(err, "saving code")
	}

	return code, nil
}

// GetActive returns the authoritative unused code for the user and purpose.
// It returns gorm.ErrRecordNotFound if none exists.
func GetActive(db *gorm.DB, userID int, purpose string) (database.VerificationCode, error) {
	var code database.VerificationCode
	err := db.
		Where("user_id = ? AND purpose = ? AND used = ?", userID, purpose, false).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		return database.VerificationCode{}, err
	}

	return code, nil
}

// StateOf classifies the code's lifecycle state at the given time
func StateOf(code database.VerificationCode, now time.Time) State {
	if code.Used {
		if code.Attempts >= MaxAttempts {
			return StateExhausted
		}
		return StateConsumed
	}
	if now.After(code.ExpiresAt) {
		return StateExpired
	}
	if code.Attempts >= MaxAttempts {
		return StateExhausted
	}

	return StateActive
}
