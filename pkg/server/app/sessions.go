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
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/coursevault/coursevault/pkg/server/database"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// sessionTTL is how long a refresh session stays valid without renewal
var sessionTTL = 30 * 24 * time.Hour

func generateSessionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", pkgErrors.Wrap(err, "reading random bits")
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// CreateSession creates a refresh session for the user
func (a *App) CreateSession(userID int) (database.Session, error) {
	key, err := generateSessionKey()
	if err != nil {
		return database.Session{}, pkgErrors.Wrap(err, "generating session key")
	}

	session := database.Session{
		UserID:     userID,
		Key:        key,
		LastUsedAt: a.Clock.Now(),
		ExpiresAt:  a.Clock.Now().Add(sessionTTL),
	}
	if err := a.DB.Save(&session).Error; err != nil {
		return database.Session{}, pkgErrors.Wrap(err, "saving session")
	}

	return session, nil
}

// GetSession looks up a live session by its key. Expired sessions yield
// ErrInvalidSession.
func (a *App) GetSession(key string) (database.Session, error) {
	var session database.Session
	err := a.DB.Where("key = ?", key).First(&session).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return database.Session{}, ErrInvalidSession
	}
	if err != nil {
		return database.Session{}, pkgErrors.Wrap(err, "finding session")
	}

	if a.Clock.Now().After(session.ExpiresAt) {
		return database.Session{}, ErrInvalidSession
	}

	return session, nil
}

// RefreshSession exchanges a refresh token for a fresh token pair. The
// session key is rotated so that a stolen refresh token stops working the
// moment the legitimate client refreshes.
func (a *App) RefreshSession(key string) (*LoginResult, error) {
	session, err := a.GetSession(key)
	if err != nil {
		return nil, err
	}

	var user database.User
	if err := a.DB.First(&user, session.UserID).Error; err != nil {
		return nil, pkgErrors.Wrap(err, "finding user")
	}

	newKey, err := generateSessionKey()
	if err != nil {
		return nil, pkgErrors.Wrap(err, "generating session key")
	}

	err = a.DB.Model(&session).Updates(map[string]interface{}{
		"key":          newKey,
		"last_used_at": a.Clock.Now(),
		"expires_at":   a.Clock.Now().Add(sessionTTL),
	}).Error
	if err != nil {
		return nil, pkgErrors.Wrap(err, "rotating session")
	}

	access, err := a.TokenIssuer.Issue(user.ID)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "issuing access token")
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: newKey,
		User:         NewUserSummary(user),
	}, nil
}

// DeleteSession removes the session with the given key
func (a *App) DeleteSession(key string) error {
	if err := a.DB.Where("key = ?", key).Delete(&database.Session{}).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting session")
	}

	return nil
}

// DeleteUserSessions removes all sessions of a user. It is called on
// password reset so that existing refresh tokens stop working.
func DeleteUserSessions(db *gorm.DB, userID int) error {
	if err := db.Where("user_id = ?", userID).Delete(&database.Session{}).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting user sessions")
	}

	return nil
}
