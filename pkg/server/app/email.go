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
	"net/url"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/log"
	"github.com/coursevault/coursevault/pkg/server/mailer"
	"github.com/coursevault/coursevault/pkg/server/vcode"
)

// getSenderEmail returns the sender address derived from the base URL
func (a *App) getSenderEmail(local string) (string, error) {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s@%s", local, u.Hostname()), nil
}

func (a *App) senderOrDefault(local string) string {
	sender, err := a.getSenderEmail(local)
	if err != nil {
		log.ErrorWrap(err, "deriving sender address")
		return fmt.Sprintf("%s@coursevault.app", local)
	}

	return sender
}

// SendVerificationEmail dispatches the email carrying the verification code
func (a *App) SendVerificationEmail(user database.User, code database.VerificationCode) {
	a.Dispatcher.Dispatch(mailer.EmailTypeVerification, a.senderOrDefault("noreply"), []string{user.Email}, mailer.VerificationTmplData{
		AccountName:  user.Name,
		AccountEmail: user.Email,
		Code:         code.Code,
		TTLMinutes:   int(vcode.DefaultTTL.Minutes()),
		BaseURL:      a.BaseURL,
	})
}

// SendPasswordResetEmail dispatches the email carrying the reset code
func (a *App) SendPasswordResetEmail(user database.User, code database.VerificationCode) {
	a.Dispatcher.Dispatch(mailer.EmailTypeResetPassword, a.senderOrDefault("noreply"), []string{user.Email}, mailer.ResetPasswordTmplData{
		AccountName:  user.Name,
		AccountEmail: user.Email,
		Code:         code.Code,
		TTLMinutes:   int(vcode.DefaultTTL.Minutes()),
		BaseURL:      a.BaseURL,
	})
}

// SendWelcomeEmail dispatches the welcome email sent after a successful
// verification
func (a *App) SendWelcomeEmail(user database.User) {
	a.Dispatcher.Dispatch(mailer.EmailTypeWelcome, a.senderOrDefault("hello"), []string{user.Email}, mailer.WelcomeTmplData{
		AccountName:  user.Name,
		AccountEmail: user.Email,
		BaseURL:      a.BaseURL,
	})
}
