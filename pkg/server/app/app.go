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

// Package app implements the application logic behind the CourseVault server
package app

import (
	"time"

	"github.com/coursevault/coursevault/pkg/clock"
	"github.com/coursevault/coursevault/pkg/server/limiter"
	"github.com/coursevault/coursevault/pkg/server/mailer"
	"github.com/coursevault/coursevault/pkg/server/storage"
	"github.com/coursevault/coursevault/pkg/server/token"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	// loginAttemptLimit is the number of failed logins before lockout
	loginAttemptLimit = 5
	// loginAttemptWindow is the lockout window, fixed from the first failure
	loginAttemptWindow = 15 * time.Minute
	// resendLimit is the number of verification code sends per window
	resendLimit = 3
	// resendWindow is the window for code resend throttling
	resendWindow = time.Hour
)

var (
	// ErrEmptyDB is an error for missing database connection in the app configuration
	ErrEmptyDB = errors.New("No database connection was provided")
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")
	// ErrEmptyBaseURL is an error for missing BaseURL content in the app configuration
	ErrEmptyBaseURL = errors.New("No BaseURL was provided")
	// ErrEmptyDispatcher is an error for missing email dispatcher in the app configuration
	ErrEmptyDispatcher = errors.New("No email dispatcher was provided")
	// ErrEmptyLimiter is an error for missing rate limiter in the app configuration
	ErrEmptyLimiter = errors.New("No rate limiter was provided")
	// ErrEmptyTokenIssuer is an error for missing token issuer in the app configuration
	ErrEmptyTokenIssuer = errors.New("No token issuer was provided")
	// ErrEmptyStorage is an error for missing blob storage in the app configuration
	ErrEmptyStorage = errors.New("No blob storage was provided")
)

// App is an application context
type App struct {
	DB                  *gorm.DB
	Clock               clock.Clock
	Dispatcher          *mailer.Dispatcher
	Limiter             *limiter.Limiter
	TokenIssuer         *token.Issuer
	Storage             storage.Driver
	BaseURL             string
	DisableRegistration bool
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.DB == nil {
		return ErrEmptyDB
	}
	if a.Clock == nil {
		return ErrEmptyClock
	}
	if a.Dispatcher == nil {
		return ErrEmptyDispatcher
	}
	if a.Limiter == nil {
		return ErrEmptyLimiter
	}
	if a.TokenIssuer == nil {
		return ErrEmptyTokenIssuer
	}
	if a.Storage == nil {
		return ErrEmptyStorage
	}
	if a.BaseURL == "" {
		return ErrEmptyBaseURL
	}

	return nil
}
