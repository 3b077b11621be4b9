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
	"context"
	"os"

	"github.com/coursevault/coursevault/pkg/clock"
	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/config"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/limiter"
	"github.com/coursevault/coursevault/pkg/server/log"
	"github.com/coursevault/coursevault/pkg/server/mailer"
	"github.com/coursevault/coursevault/pkg/server/storage"
	"github.com/coursevault/coursevault/pkg/server/token"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func initDB(dsn string) *gorm.DB {
	db := database.Open(dsn)
	database.InitSchema(db)

	return db
}

func getEmailBackend() mailer.Backend {
	smtpBackend, err := mailer.NewSMTPBackend()
	if err != nil {
		log.Debug("SMTP not configured, using StdoutBackend for emails")
		return mailer.NewStdoutBackend()
	}

	log.Debug("Email backend configured")
	return smtpBackend
}

func getLimiterStore(cfg config.Config, c clock.Clock) limiter.CounterStore {
	if cfg.RedisAddr == "" {
		log.Debug("Redis not configured, using in-memory rate limit counters")
		return limiter.NewMemoryStore(c)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: os.Getenv("RedisPassword"),
	})

	return limiter.NewRedisStore(client)
}

func getStorage(cfg config.Config) (storage.Driver, error) {
	if cfg.S3Bucket == "" {
		if cfg.IsProd() {
			return nil, errors.New("S3Bucket is required in production")
		}

		log.Debug("S3 not configured, storing blobs in memory")
		return storage.NewMemory(), nil
	}

	return storage.NewS3(context.Background(), storage.S3Params{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  os.Getenv("S3Endpoint"),
		AccessKey: os.Getenv("S3AccessKey"),
		SecretKey: os.Getenv("S3SecretKey"),
	})
}

func initApp(cfg config.Config) (app.App, error) {
	db := initDB(cfg.DSN)
	c := clock.New()

	store, err := getStorage(cfg)
	if err != nil {
		return app.App{}, errors.Wrap(err, "initializing storage")
	}

	return app.App{
		DB:                  db,
		Clock:               c,
		Dispatcher:          mailer.NewDispatcher(getEmailBackend()),
		Limiter:             limiter.New(getLimiterStore(cfg, c)),
		TokenIssuer:         token.NewIssuer([]byte(cfg.TokenSecret), 0, c),
		Storage:             store,
		BaseURL:             cfg.BaseURL,
		DisableRegistration: cfg.DisableRegistration,
	}, nil
}

// setupApp creates the config and app for a command, returning a cleanup
// function that closes the database
func setupApp(p config.Params) (*app.App, func(), error) {
	cfg, err := config.New(p)
	if err != nil {
		return nil, nil, err
	}

	log.SetLevel(cfg.LogLevel)

	a, err := initApp(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		sqlDB, err := a.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return &a, cleanup, nil
}
