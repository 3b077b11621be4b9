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
	"testing"
	"time"

	"github.com/coursevault/coursevault/pkg/assert"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestSweepVerificationCodes(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

	old := database.VerificationCode{
		UserID:      user.ID,
		Purpose:     database.VerificationPurposeEmail,
		Code:        "111111",
		ExpiresAt:   fx.Clock.Now().Add(-25 * time.Hour),
		Used:        true,
		Idempotency: "old-code",
		Model:       database.Model{CreatedAt: fx.Clock.Now().Add(-25 * time.Hour)},
	}
	testutils.MustExec(t, db.Create(&old), "creating old code")

	fresh := database.VerificationCode{
		UserID:      user.ID,
		Purpose:     database.VerificationPurposeEmail,
		Code:        "222222",
		ExpiresAt:   fx.Clock.Now().Add(10 * time.Minute),
		Idempotency: "fresh-code",
		Model:       database.Model{CreatedAt: fx.Clock.Now()},
	}
	testutils.MustExec(t, db.Create(&fresh), "creating fresh code")

	removed, err := a.SweepVerificationCodes()
	if err != nil {
		t.Fatal(errors.Wrap(err, "sweeping codes"))
	}
	assert.Equal(t, removed, int64(1), "removed count mismatch")

	var remaining []database.VerificationCode
	testutils.MustExec(t, db.Find(&remaining), "finding codes")
	assert.Equal(t, len(remaining), 1, "only the fresh code should remain")
	assert.Equal(t, remaining[0].Code, "222222", "wrong code survived")
}

func TestSweepUnverifiedUsers(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	// A stale unverified user with content
	stale := testutils.SetupUserData(db, "stale@example.com", "pass1234")
	testutils.MustExec(t, db.Model(&stale).
		Update("created_at", fx.Clock.Now().Add(-8*24*time.Hour)), "aging user")
	folder := testutils.SetupFolderData(db, stale, "notes", nil)
	file := testutils.SetupFileData(db, folder, "lecture.pdf")

	// A recent unverified user and a verified one survive
	testutils.SetupUserData(db, "recent@example.com", "pass1234")
	old := testutils.SetupVerifiedUserData(db, "verified@example.com", "pass1234")
	testutils.MustExec(t, db.Model(&old).
		Update("created_at", fx.Clock.Now().Add(-30*24*time.Hour)), "aging verified user")

	removed, err := a.SweepUnverifiedUsers(ctx)
	if err != nil {
		t.Fatal(errors.Wrap(err, "sweeping users"))
	}
	assert.Equal(t, removed, int64(1), "removed count mismatch")

	var userCount int64
	testutils.MustExec(t, db.Model(&database.User{}).Count(&userCount), "counting users")
	assert.Equal(t, userCount, int64(2), "user count mismatch")

	var staleCount int64
	testutils.MustExec(t, db.Model(&database.User{}).
		Where("email = ?", "stale@example.com").Count(&staleCount), "counting stale user")
	assert.Equal(t, staleCount, int64(0), "stale user should be purged")

	// The purge cascades to content and blobs
	var folderCount, fileCount int64
	testutils.MustExec(t, db.Model(&database.Folder{}).Count(&folderCount), "counting folders")
	testutils.MustExec(t, db.Model(&database.File{}).Count(&fileCount), "counting files")
	assert.Equal(t, folderCount, int64(0), "folders should be purged")
	assert.Equal(t, fileCount, int64(0), "files should be purged")

	deleted := fx.Storage.Deleted()
	assert.Equal(t, len(deleted), 1, "blob should be deleted")
	assert.Equal(t, deleted[0], file.BlobKey, "blob key mismatch")
}

func TestSweepTrash(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	// An expired trash folder with a file, an expired lone file, and a
	// recently trashed folder
	oldFolder := testutils.SetupFolderData(db, user, "old", nil)
	oldFile := testutils.SetupFileData(db, oldFolder, "old.pdf")
	keeper := testutils.SetupFolderData(db, user, "keeper", nil)
	loneFolder := testutils.SetupFolderData(db, user, "lone", nil)
	loneFile := testutils.SetupFileData(db, loneFolder, "lone.pdf")

	if err := a.SoftDeleteFolder(user, oldFolder.ID); err != nil {
		t.Fatal(errors.Wrap(err, "trashing folder"))
	}
	if err := a.SoftDeleteFile(user, loneFile.ID); err != nil {
		t.Fatal(errors.Wrap(err, "trashing file"))
	}

	fx.Clock.Advance(31 * 24 * time.Hour)

	if err := a.SoftDeleteFolder(user, keeper.ID); err != nil {
		t.Fatal(errors.Wrap(err, "trashing recent folder"))
	}

	removed, err := a.SweepTrash(ctx)
	if err != nil {
		t.Fatal(errors.Wrap(err, "sweeping trash"))
	}
	assert.Equal(t, removed, int64(2), "removed count mismatch")

	// The expired folder and its file are gone for good
	var count int64
	testutils.MustExec(t, db.Model(&database.Folder{}).Where("id = ?", oldFolder.ID).Count(&count), "counting old folder")
	assert.Equal(t, count, int64(0), "expired folder should be gone")
	testutils.MustExec(t, db.Model(&database.File{}).Where("id = ?", oldFile.ID).Count(&count), "counting old file")
	assert.Equal(t, count, int64(0), "expired file should be gone")
	testutils.MustExec(t, db.Model(&database.File{}).Where("id = ?", loneFile.ID).Count(&count), "counting lone file")
	assert.Equal(t, count, int64(0), "expired lone file should be gone")

	// The recently trashed folder is still recoverable
	testutils.MustExec(t, db.Model(&database.Folder{}).Where("id = ?", keeper.ID).Count(&count), "counting keeper")
	assert.Equal(t, count, int64(1), "recent trash should survive")

	deleted := fx.Storage.Deleted()
	assert.Equal(t, len(deleted), 2, "expired blobs should be deleted")
}

func TestSweepExpiredSessions(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	if _, err := a.Login(ctx, "alice@example.com", "pass1234"); err != nil {
		t.Fatal(errors.Wrap(err, "logging in"))
	}

	fx.Clock.Advance(31 * 24 * time.Hour)

	if _, err := a.Login(ctx, "alice@example.com", "pass1234"); err != nil {
		t.Fatal(errors.Wrap(err, "logging in again"))
	}

	removed, err := a.SweepExpiredSessions()
	if err != nil {
		t.Fatal(errors.Wrap(err, "sweeping sessions"))
	}
	assert.Equal(t, removed, int64(1), "removed count mismatch")

	var count int64
	testutils.MustExec(t, db.Model(&database.Session{}).Count(&count), "counting sessions")
	assert.Equal(t, count, int64(1), "live session should survive")
}
