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

// Package token issues and verifies signed access tokens
package token

import (
	"strconv"
	"time"

	"github.com/coursevault/coursevault/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultAccessTTL is the default lifetime of an access token
const DefaultAccessTTL = 15 * time.Minute

// ErrInvalidToken is an error for a token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies access tokens bound to a user id
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	clock     clock.Clock
}

// NewIssuer returns a new Issuer. A zero ttl falls back to DefaultAccessTTL.
func NewIssuer(secret []byte, ttl time.Duration, c clock.Clock) *Issuer {
	if ttl == 0 {
		ttl = DefaultAccessTTL
	}

	return &Issuer{
		secret:    secret,
		accessTTL: ttl,
		clock:     c,
	}
}

// Issue returns a signed access token for the user of the given id
func (i *Issuer) Issue(userID int) (string, error) {
	now := i.clock.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
	})

	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}

	return signed, nil
}

// Verify parses the token and returns the user id it is bound to. It
// returns ErrInvalidToken for any token that is malformed, expired, or
// signed with a different key.
func (i *Issuer) Verify(tokenString string) (int, error) {
	claims := &jwt.RegisteredClaims{}

	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))
	if err != nil {
		return 0, ErrInvalidToken
	}
	if !t.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return userID, nil
}
