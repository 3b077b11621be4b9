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

	"github.com/coursevault/coursevault/pkg/server/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var dsnFlag string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweeps once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setupApp(config.Params{DSN: dsnFlag})
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()

			codes, err := a.SweepVerificationCodes()
			if err != nil {
				return errors.Wrap(err, "sweeping verification codes")
			}
			sessions, err := a.SweepExpiredSessions()
			if err != nil {
				return errors.Wrap(err, "sweeping sessions")
			}
			users, err := a.SweepUnverifiedUsers(ctx)
			if err != nil {
				return errors.Wrap(err, "sweeping unverified users")
			}
			trash, err := a.SweepTrash(ctx)
			if err != nil {
				return errors.Wrap(err, "sweeping trash")
			}

			fmt.Printf("Removed %d verification codes\n", codes)
			fmt.Printf("Removed %d expired sessions\n", sessions)
			fmt.Printf("Removed %d unverified users\n", users)
			fmt.Printf("Removed %d trashed items\n", trash)

			return nil
		},
	}

	cmd.Flags().StringVar(&dsnFlag, "dsn", "", "postgres:// URL or path to SQLite file (env: DSN)")

	return cmd
}
