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

	"github.com/coursevault/coursevault/pkg/assert"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestCreateFile(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, fx := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)

	file, err := a.CreateFile(ctx, user, folder.ID, "lecture.pdf", []byte("%PDF-1.4 content"))
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating file"))
	}

	assert.Equal(t, file.Title, "lecture.pdf", "title mismatch")
	assert.Equal(t, file.FolderID, folder.ID, "folder mismatch")
	assert.Equal(t, file.ExtractionStatus, database.ExtractionStatusPending, "extraction should start pending")
	assert.NotEqual(t, file.BlobKey, "", "blob key should be set")
	assert.Equal(t, fx.Storage.Has(file.BlobKey), true, "document should be in the blob store")
}

func TestCreateFile_validation(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)

	_, err := a.CreateFile(ctx, user, folder.ID, "", []byte("data"))
	assert.Equal(t, errors.Is(err, ErrTitleRequired), true, "error mismatch")

	_, err = a.CreateFile(ctx, user, 9999, "lecture.pdf", []byte("data"))
	assert.Equal(t, errors.Is(err, ErrNotFound), true, "missing folder should be rejected")
}

func TestPresignFile(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)
	ctx := context.Background()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)
	file := testutils.SetupFileData(db, folder, "lecture.pdf")

	url, err := a.PresignFile(ctx, user, file.ID)
	if err != nil {
		t.Fatal(errors.Wrap(err, "presigning file"))
	}
	assert.ContainsSubstring(t, url, file.BlobKey, "url should reference the blob")
}

func TestMoveFile(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	src := testutils.SetupFolderData(db, user, "src", nil)
	dst := testutils.SetupFolderData(db, user, "dst", nil)
	file := testutils.SetupFileData(db, src, "lecture.pdf")

	moved, err := a.MoveFile(user, file.ID, dst.ID)
	if err != nil {
		t.Fatal(errors.Wrap(err, "moving file"))
	}
	assert.Equal(t, moved.FolderID, dst.ID, "folder mismatch")

	files, err := a.ListFiles(user, dst.ID)
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing files"))
	}
	assert.Equal(t, len(files), 1, "file should be in the destination")
}

func TestMoveFile_foreignFolder(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	alice := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	mallory := testutils.SetupVerifiedUserData(db, "mallory@example.com", "pass1234")
	src := testutils.SetupFolderData(db, alice, "src", nil)
	foreign := testutils.SetupFolderData(db, mallory, "foreign", nil)
	file := testutils.SetupFileData(db, src, "lecture.pdf")

	_, err := a.MoveFile(alice, file.ID, foreign.ID)
	assert.Equal(t, errors.Is(err, ErrNotFound), true, "foreign folders should look missing")
}

func TestRecordFileView(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)
	file := testutils.SetupFileData(db, folder, "lecture.pdf")

	for i := 0; i < 3; i++ {
		if err := a.RecordFileView(user, file.ID); err != nil {
			t.Fatal(errors.Wrap(err, "recording view"))
		}
	}

	var updated database.File
	testutils.MustExec(t, db.First(&updated, file.ID), "finding file")
	assert.Equal(t, updated.ViewCount, 3, "view count mismatch")
	if updated.LastViewedAt == nil {
		t.Error("last viewed timestamp should be set")
	}
}

func TestFileTags(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)
	file := testutils.SetupFileData(db, folder, "lecture.pdf")

	if _, err := a.AddFileTag(user, file.ID, "calculus"); err != nil {
		t.Fatal(errors.Wrap(err, "adding tag"))
	}
	updated, err := a.AddFileTag(user, file.ID, "exam")
	if err != nil {
		t.Fatal(errors.Wrap(err, "adding second tag"))
	}
	assert.DeepEqual(t, updated.Tags, []string{"calculus", "exam"}, "tags mismatch")

	// Duplicates are a no-op
	updated, err = a.AddFileTag(user, file.ID, "calculus")
	if err != nil {
		t.Fatal(errors.Wrap(err, "re-adding tag"))
	}
	assert.DeepEqual(t, updated.Tags, []string{"calculus", "exam"}, "duplicate tag should be a no-op")

	updated, err = a.RemoveFileTag(user, file.ID, "calculus")
	if err != nil {
		t.Fatal(errors.Wrap(err, "removing tag"))
	}
	assert.DeepEqual(t, updated.Tags, []string{"exam"}, "tags mismatch after removal")

	// Removing a missing tag is a no-op
	updated, err = a.RemoveFileTag(user, file.ID, "missing")
	if err != nil {
		t.Fatal(errors.Wrap(err, "removing missing tag"))
	}
	assert.DeepEqual(t, updated.Tags, []string{"exam"}, "missing tag removal should be a no-op")
}

func TestSetExtractionStatus(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	_, _ = NewTest(db)

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)
	file := testutils.SetupFileData(db, folder, "lecture.pdf")

	// pending -> completed skips processing
	err := SetExtractionStatus(db, &file, database.ExtractionStatusCompleted, "")
	assert.Equal(t, errors.Is(err, ErrExtractionTransition), true, "skipping processing should be rejected")

	if err := SetExtractionStatus(db, &file, database.ExtractionStatusProcessing, ""); err != nil {
		t.Fatal(errors.Wrap(err, "starting extraction"))
	}
	if err := SetExtractionStatus(db, &file, database.ExtractionStatusCompleted, "extracted text"); err != nil {
		t.Fatal(errors.Wrap(err, "completing extraction"))
	}

	var updated database.File
	testutils.MustExec(t, db.First(&updated, file.ID), "finding file")
	assert.Equal(t, updated.ExtractionStatus, database.ExtractionStatusCompleted, "status mismatch")
	assert.Equal(t, updated.ExtractedText.String, "extracted text", "extracted text mismatch")

	// completed is terminal
	err = SetExtractionStatus(db, &updated, database.ExtractionStatusProcessing, "")
	assert.Equal(t, errors.Is(err, ErrExtractionTransition), true, "completed should be terminal")
}

func TestSetExtractionStatus_retryAfterFailure(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	_, _ = NewTest(db)

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)
	file := testutils.SetupFileData(db, folder, "lecture.pdf")

	if err := SetExtractionStatus(db, &file, database.ExtractionStatusProcessing, ""); err != nil {
		t.Fatal(errors.Wrap(err, "starting extraction"))
	}
	if err := SetExtractionStatus(db, &file, database.ExtractionStatusFailed, ""); err != nil {
		t.Fatal(errors.Wrap(err, "failing extraction"))
	}

	// A failed extraction may be retried
	if err := SetExtractionStatus(db, &file, database.ExtractionStatusProcessing, ""); err != nil {
		t.Fatal(errors.Wrap(err, "retrying extraction"))
	}
	if err := SetExtractionStatus(db, &file, database.ExtractionStatusCompleted, "done"); err != nil {
		t.Fatal(errors.Wrap(err, "completing extraction"))
	}
}

func TestSearchFiles(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	a, _ := NewTest(db)

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "notes", nil)

	calc := testutils.SetupFileData(db, folder, "calculus-final.pdf")
	testutils.SetupFileData(db, folder, "biology.pdf")
	tagged := testutils.SetupFileData(db, folder, "misc.pdf")
	if _, err := a.AddFileTag(user, tagged.ID, "calculus"); err != nil {
		t.Fatal(errors.Wrap(err, "adding tag"))
	}

	results, err := a.SearchFiles(user, "calculus")
	if err != nil {
		t.Fatal(errors.Wrap(err, "searching"))
	}

	assert.Equal(t, len(results), 2, "result count mismatch")
	assert.Equal(t, results[0].ID, calc.ID, "title match should be included")
	assert.Equal(t, results[1].ID, tagged.ID, "tag match should be included")
}
