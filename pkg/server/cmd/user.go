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

package cmd

import (
	"fmt"

	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/config"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(newUserLsCmd())
	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserVerifyCmd())
	cmd.AddCommand(newUserResetPasswordCmd())

	return cmd
}

func newUserLsCmd() *cobra.Command {
	var dsnFlag string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(config.Params{DSN: dsnFlag})
			if err != nil {
				return err
			}
			defer cleanup()

			var users []database.User
			if err := a.DB.Order("id ASC").Find(&users).Error; err != nil {
				return errors.Wrap(err, "listing users")
			}

			fmt.Printf("%-5s %-40s %-10s\n", "ID", "EMAIL", "VERIFIED")
			for _, user := range users {
				fmt.Printf("%-5d %-40s %-10t\n", user.ID, user.Email, user.EmailVerified)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dsnFlag, "dsn", "", "postgres:// URL or path to SQLite file (env: DSN)")

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		nameFlag     string
		emailFlag    string
		passwordFlag string
		dsnFlag      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(config.Params{DSN: dsnFlag})
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := a.CreateUser(nameFlag, emailFlag, passwordFlag, passwordFlag)
			if err != nil {
				return errors.Wrap(err, "creating user")
			}

			fmt.Printf("User created successfully\n")
			fmt.Printf("Email: %s\n", user.Email)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&nameFlag, "name", "", "user name (required)")
	f.StringVar(&emailFlag, "email", "", "user email address (required)")
	f.StringVar(&passwordFlag, "password", "", "user password (required)")
	f.StringVar(&dsnFlag, "dsn", "", "postgres:// URL or path to SQLite file (env: DSN)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func newUserVerifyCmd() *cobra.Command {
	var (
		emailFlag string
		dsnFlag   string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Mark a user's email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(config.Params{DSN: dsnFlag})
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := a.GetUserByEmail(emailFlag)
			if err != nil {
				if errors.Is(err, app.ErrNotFound) {
					return errors.Errorf("user with email %s not found", emailFlag)
				}
				return errors.Wrap(err, "finding user")
			}

			if err := a.DB.Model(&database.User{}).
				Where("id = ?", user.ID).
				Update("email_verified", true).Error; err != nil {
				return errors.Wrap(err, "marking user verified")
			}

			fmt.Printf("User verified successfully\n")
			fmt.Printf("Email: %s\n", user.Email)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&emailFlag, "email", "", "user email address (required)")
	f.StringVar(&dsnFlag, "dsn", "", "postgres:// URL or path to SQLite file (env: DSN)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newUserResetPasswordCmd() *cobra.Command {
	var (
		emailFlag    string
		passwordFlag string
		dsnFlag      string
	)

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(config.Params{DSN: dsnFlag})
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := a.GetUserByEmail(emailFlag)
			if err != nil {
				if errors.Is(err, app.ErrNotFound) {
					return errors.Errorf("user with email %s not found", emailFlag)
				}
				return errors.Wrap(err, "finding user")
			}

			if err := app.UpdateUserPassword(a.DB, &user, passwordFlag); err != nil {
				return errors.Wrap(err, "updating password")
			}

			// Stolen credentials are useless once the password changes
			if err := app.DeleteUserSessions(a.DB, user.ID); err != nil {
				return errors.Wrap(err, "revoking sessions")
			}

			fmt.Printf("Password reset successfully\n")
			fmt.Printf("Email: %s\n", user.Email)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&emailFlag, "email", "", "user email address (required)")
	f.StringVar(&passwordFlag, "password", "", "new password (required)")
	f.StringVar(&dsnFlag, "dsn", "", "postgres:// URL or path to SQLite file (env: DSN)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
