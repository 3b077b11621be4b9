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

package controllers

import (
	"net/http"

	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/context"
	"github.com/pkg/errors"
)

// NewUsers creates a new Users controller
func NewUsers(app *app.App) *Users {
	return &Users{app: app}
}

// Users is a user controller
type Users struct {
	app *app.App
}

// RegistrationForm is the payload for registering
type RegistrationForm struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Create handles POST /v1/register
func (u *Users) Create(w http.ResponseWriter, r *http.Request) {
	var form RegistrationForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	user, err := u.app.CreateUser(form.Name, form.Email, form.Password, form.PasswordConfirmation)
	if err != nil {
		handleJSONError(w, err, "creating user")
		return
	}

	respondJSON(w, http.StatusCreated, app.NewUserSummary(user))
}

// SigninForm is the payload for logging in
type SigninForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/signin
func (u *Users) Login(w http.ResponseWriter, r *http.Request) {
	var form SigninForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	result, err := u.app.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		handleJSONError(w, err, "logging in")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RefreshForm is the payload for refreshing a token pair
type RefreshForm struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /v1/token/refresh
func (u *Users) Refresh(w http.ResponseWriter, r *http.Request) {
	var form RefreshForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	result, err := u.app.RefreshSession(form.RefreshToken)
	if err != nil {
		handleJSONError(w, err, "refreshing session")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Logout handles POST /v1/signout
func (u *Users) Logout(w http.ResponseWriter, r *http.Request) {
	var form RefreshForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if err := u.app.DeleteSession(form.RefreshToken); err != nil {
		handleJSONError(w, err, "deleting session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyEmailForm is the payload for submitting a verification code
type VerifyEmailForm struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail handles POST /v1/verify-email. The endpoint is
// unauthenticated because a freshly registered account has no way to
// obtain a token before its email is verified. A successful verification
// responds with a token pair so the client is signed in right away.
func (u *Users) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var form VerifyEmailForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	result, err := u.app.VerifyEmail(form.Email, form.Code)
	if errors.Is(err, app.ErrAlreadyVerified) {
		// Verifying twice is an idempotent success
		respondJSON(w, http.StatusOK, map[string]bool{"email_verified": true})
		return
	}
	if err != nil {
		handleJSONError(w, err, "verifying email")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// EmailForm is a payload carrying an email address plus an optional
// idempotency key. Retrying with the same key does not supersede the
// active code.
type EmailForm struct {
	Email          string `json:"email"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ResendVerification handles POST /v1/resend-verification
func (u *Users) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var form EmailForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if err := u.app.ResendVerificationCode(r.Context(), form.Email, form.IdempotencyKey); err != nil {
		handleJSONError(w, err, "resending verification code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, a code has been sent"})
}

// CreatePasswordReset handles POST /v1/password-reset. The response is the
// same whether or not the account exists.
func (u *Users) CreatePasswordReset(w http.ResponseWriter, r *http.Request) {
	var form EmailForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if err := u.app.RequestPasswordReset(r.Context(), form.Email, form.IdempotencyKey); err != nil {
		handleJSONError(w, err, "requesting password reset")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, a code has been sent"})
}

// PasswordResetForm is the payload for confirming a password reset
type PasswordResetForm struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// PasswordReset handles PATCH /v1/password-reset
func (u *Users) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var form PasswordResetForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if err := u.app.ConfirmPasswordReset(r.Context(), form.Email, form.Code, form.Password); err != nil {
		handleJSONError(w, err, "confirming password reset")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/me
func (u *Users) Me(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	respondJSON(w, http.StatusOK, app.NewUserSummary(*user))
}

// ProfileForm is the payload for updating the profile
type ProfileForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProfileUpdate handles PATCH /v1/account/profile
func (u *Users) ProfileUpdate(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var form ProfileForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if err := u.app.UpdateProfile(user, form.Name, form.Email); err != nil {
		handleJSONError(w, err, "updating profile")
		return
	}

	respondJSON(w, http.StatusOK, app.NewUserSummary(*user))
}
