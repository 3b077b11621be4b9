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

// Package job provides the background tasks that the server performs
// periodically
package job

import (
	"context"

	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// Runner schedules and runs the periodic maintenance jobs
type Runner struct {
	app  *app.App
	cron *cron.Cron
}

// NewRunner returns a new runner
func NewRunner(a *app.App) (Runner, error) {
	if err := a.Validate(); err != nil {
		return Runner{}, errors.Wrap(err, "validating the app")
	}

	return Runner{
		app:  a,
		cron: cron.New(),
	}, nil
}

func (r Runner) sweepCodes() {
	count, err := r.app.SweepVerificationCodes()
	if err != nil {
		log.ErrorWrap(err, "sweeping verification codes")
		return
	}

	log.WithFields(log.Fields{
		"count": count,
	}).Info("swept verification codes")
}

func (r Runner) sweepSessions() {
	count, err := r.app.SweepExpiredSessions()
	if err != nil {
		log.ErrorWrap(err, "sweeping sessions")
		return
	}

	log.WithFields(log.Fields{
		"count": count,
	}).Info("swept expired sessions")
}

func (r Runner) sweepUnverifiedUsers() {
	count, err := r.app.SweepUnverifiedUsers(context.Background())
	if err != nil {
		log.ErrorWrap(err, "sweeping unverified users")
		return
	}

	log.WithFields(log.Fields{
		"count": count,
	}).Info("swept unverified users")
}

func (r Runner) sweepTrash() {
	count, err := r.app.SweepTrash(context.Background())
	if err != nil {
		log.ErrorWrap(err, "sweeping trash")
		return
	}

	log.WithFields(log.Fields{
		"count": count,
	}).Info("swept trash")
}

// Do runs every job once and schedules the periodic runs
func (r Runner) Do() error {
	r.sweepCodes()
	r.sweepSessions()
	r.sweepUnverifiedUsers()
	r.sweepTrash()

	if err := r.cron.AddFunc("@every 1h", r.sweepCodes); err != nil {
		return errors.Wrap(err, "scheduling verification code sweep")
	}
	if err := r.cron.AddFunc("@every 1h", r.sweepSessions); err != nil {
		return errors.Wrap(err, "scheduling session sweep")
	}
	if err := r.cron.AddFunc("@every 24h", r.sweepUnverifiedUsers); err != nil {
		return errors.Wrap(err, "scheduling unverified user sweep")
	}
	if err := r.cron.AddFunc("@every 24h", r.sweepTrash); err != nil {
		return errors.Wrap(err, "scheduling trash sweep")
	}

	r.cron.Start()

	return nil
}

// Stop stops the scheduled jobs
func (r Runner) Stop() {
	r.cron.Stop()
}
