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
	"context"
	"time"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/log"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	// codeRetention is how long verification code rows are kept after
	// creation. Codes expire functionally after minutes; the rows linger
	// only for auditing recent activity.
	codeRetention = 24 * time.Hour
	// unverifiedUserRetention is how long an account may stay unverified
	// before it is purged
	unverifiedUserRetention = 7 * 24 * time.Hour
	// trashRetention is how long trashed items are recoverable
	trashRetention = 30 * 24 * time.Hour
)

// SweepVerificationCodes deletes verification code rows older than the
// retention period. It returns the number of rows removed.
func (a *App) SweepVerificationCodes() (int64, error) {
	cutoff := a.Clock.Now().Add(-codeRetention)

	res := a.DB.Where("created_at < ?", cutoff).Delete(&database.VerificationCode{})
	if res.Error != nil {
		return 0, pkgErrors.Wrap(res.Error, "deleting stale codes")
	}

	return res.RowsAffected, nil
}

// SweepExpiredSessions deletes refresh sessions past their expiry
func (a *App) SweepExpiredSessions() (int64, error) {
	res := a.DB.Where("expires_at < ?", a.Clock.Now()).Delete(&database.Session{})
	if res.Error != nil {
		return 0, pkgErrors.Wrap(res.Error, "deleting expired sessions")
	}

	return res.RowsAffected, nil
}

// SweepUnverifiedUsers purges accounts that never verified their email
// within the retention period, along with everything they own. It returns
// the number of users removed.
func (a *App) SweepUnverifiedUsers(ctx context.Context) (int64, error) {
	cutoff := a.Clock.Now().Add(-unverifiedUserRetention)

	var users []database.User
	err := a.DB.
		Where("email_verified = ? AND created_at < ?", false, cutoff).
		Find(&users).Error
	if err != nil {
		return 0, pkgErrors.Wrap(err, "finding stale unverified users")
	}

	var removed int64
	for _, user := range users {
		if err := a.purgeUser(ctx, user); err != nil {
			// Keep sweeping; the failed user is retried on the next run.
			log.WithFields(log.Fields{
				"user_id": user.ID,
			}).ErrorWrap(err, "purging unverified user")
			continue
		}
		removed++
	}

	return removed, nil
}

func (a *App) purgeUser(ctx context.Context, user database.User) error {
	return a.DB.Transaction(func(tx *gorm.DB) error {
		var folderIDs []int
		err := tx.Model(&database.Folder{}).
			Where("user_id = ?", user.ID).
			Pluck("id", &folderIDs).Error
		if err != nil {
			return pkgErrors.Wrap(err, "finding folders")
		}

		if len(folderIDs) > 0 {
			if err := a.deleteFolderForever(ctx, tx, folderIDs); err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&database.VerificationCode{}).Error; err != nil {
			return pkgErrors.Wrap(err, "deleting codes")
		}
		if err := DeleteUserSessions(tx, user.ID); err != nil {
			return err
		}
		if err := tx.Delete(&user).Error; err != nil {
			return pkgErrors.Wrap(err, "deleting user")
		}

		return nil
	})
}

// SweepTrash permanently removes folders and files trashed longer than the
// retention period. Folders go first so that their contained files are
// handled by the subtree delete; stragglers in still-live folders are
// removed individually. It returns the number of top-level items removed.
func (a *App) SweepTrash(ctx context.Context) (int64, error) {
	cutoff := a.Clock.Now().Add(-trashRetention)

	var removed int64

	var folders []database.Folder
	err := a.DB.
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&folders).Error
	if err != nil {
		return 0, pkgErrors.Wrap(err, "finding expired trash folders")
	}

	for _, folder := range folders {
		err := a.DB.Transaction(func(tx *gorm.DB) error {
			// A parent swept earlier in this run may have taken this
			// folder with it.
			var count int64
			if err := tx.Model(&database.Folder{}).Where("id = ?", folder.ID).Count(&count).Error; err != nil {
				return pkgErrors.Wrap(err, "checking folder")
			}
			if count == 0 {
				return nil
			}

			ids, err := collectSubtree(tx, folder.ID)
			if err != nil {
				return err
			}

			if err := a.deleteFolderForever(ctx, tx, ids); err != nil {
				return err
			}
			removed++

			return nil
		})
		if err != nil {
			log.WithFields(log.Fields{
				"folder_id": folder.ID,
			}).ErrorWrap(err, "sweeping trashed folder")
		}
	}

	var files []database.File
	err = a.DB.
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&files).Error
	if err != nil {
		return removed, pkgErrors.Wrap(err, "finding expired trash files")
	}

	for _, file := range files {
		if err := a.Storage.Delete(ctx, file.BlobKey); err != nil {
			log.WithFields(log.Fields{
				"file_id": file.ID,
				"key":     file.BlobKey,
			}).ErrorWrap(err, "deleting blob")
		}
		if err := a.DB.Delete(&file).Error; err != nil {
			log.WithFields(log.Fields{
				"file_id": file.ID,
			}).ErrorWrap(err, "sweeping trashed file")
			continue
		}
		removed++
	}

	return removed, nil
}
