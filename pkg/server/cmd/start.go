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
	"net/http"

	"github.com/coursevault/coursevault/pkg/server/buildinfo"
	"github.com/coursevault/coursevault/pkg/server/config"
	"github.com/coursevault/coursevault/pkg/server/controllers"
	"github.com/coursevault/coursevault/pkg/server/job"
	"github.com/coursevault/coursevault/pkg/server/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var (
		portFlag                string
		baseURLFlag             string
		dsnFlag                 string
		tokenSecretFlag         string
		redisAddrFlag           string
		s3BucketFlag            string
		s3RegionFlag            string
		disableRegistrationFlag bool
		logLevelFlag            string
		configFileFlag          string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(config.Params{
				Port:                portFlag,
				BaseURL:             baseURLFlag,
				DSN:                 dsnFlag,
				TokenSecret:         tokenSecretFlag,
				RedisAddr:           redisAddrFlag,
				S3Bucket:            s3BucketFlag,
				S3Region:            s3RegionFlag,
				DisableRegistration: disableRegistrationFlag,
				LogLevel:            logLevelFlag,
				ConfigFile:          configFileFlag,
			})
			if err != nil {
				return err
			}
			if err := cfg.ValidateServing(); err != nil {
				return err
			}

			log.SetLevel(cfg.LogLevel)

			a, err := initApp(cfg)
			if err != nil {
				return err
			}
			defer func() {
				sqlDB, err := a.DB.DB()
				if err == nil {
					sqlDB.Close()
				}
			}()

			runner, err := job.NewRunner(&a)
			if err != nil {
				return errors.Wrap(err, "initializing job runner")
			}
			if err := runner.Do(); err != nil {
				return errors.Wrap(err, "starting jobs")
			}
			defer runner.Stop()

			ctl := controllers.New(&a)
			rc := controllers.RouteConfig{
				APIRoutes:   controllers.NewAPIRoutes(&a, ctl),
				Controllers: ctl,
			}

			r, err := controllers.NewRouter(&a, rc)
			if err != nil {
				return errors.Wrap(err, "initializing router")
			}

			log.WithFields(log.Fields{
				"version": buildinfo.Version,
				"port":    cfg.Port,
			}).Info("CourseVault server starting")

			return http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r)
		},
	}

	f := cmd.Flags()
	f.StringVar(&portFlag, "port", "", "server port (env: PORT, default: 3001)")
	f.StringVar(&baseURLFlag, "baseUrl", "", "full URL to the server without trailing slash (env: BaseURL)")
	f.StringVar(&dsnFlag, "dsn", "", "postgres:// URL or path to SQLite file (env: DSN)")
	f.StringVar(&tokenSecretFlag, "tokenSecret", "", "secret for signing access tokens (env: TokenSecret)")
	f.StringVar(&redisAddrFlag, "redisAddr", "", "redis address for rate limit counters (env: RedisAddr)")
	f.StringVar(&s3BucketFlag, "s3Bucket", "", "S3 bucket for document blobs (env: S3Bucket)")
	f.StringVar(&s3RegionFlag, "s3Region", "", "S3 region (env: S3Region)")
	f.BoolVar(&disableRegistrationFlag, "disableRegistration", false, "disable user registration (env: DisableRegistration)")
	f.StringVar(&logLevelFlag, "logLevel", "", "log level: debug, info, warn, or error (env: LOG_LEVEL)")
	f.StringVar(&configFileFlag, "configFile", "", "path to a YAML config file")

	return cmd
}
