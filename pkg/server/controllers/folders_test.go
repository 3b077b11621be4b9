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
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/coursevault/coursevault/pkg/assert"
	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestCreateFolder(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	req := makeAuthReq(t, a, server.URL, "POST", "/api/v1/folders", `{"title": "Calculus"}`, user.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusCreated, "creating folder")

	var got database.Folder
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}
	assert.Equal(t, got.Title, "Calculus", "title mismatch")
	assert.NotEqual(t, got.Slug, "", "slug should be set")
}

func TestCreateFolder_missingTitle(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")

	req := makeAuthReq(t, a, server.URL, "POST", "/api/v1/folders", `{"title": ""}`, user.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusBadRequest, "creating folder without a title")
}

func TestListFolders(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	parent := testutils.SetupFolderData(db, user, "Physics", nil)
	testutils.SetupFolderData(db, user, "Mechanics", &parent.ID)
	testutils.SetupFolderData(db, user, "Optics", &parent.ID)

	req := makeAuthReq(t, a, server.URL, "GET", fmt.Sprintf("/api/v1/folders?parent_id=%d", parent.ID), "", user.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "listing folders")

	var got []database.Folder
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}
	assert.Equal(t, len(got), 2, "folder count mismatch")
	assert.Equal(t, got[0].Title, "Mechanics", "listing should be sorted by title")
}

func TestMoveFolder_cycle(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	parent := testutils.SetupFolderData(db, user, "Physics", nil)
	child := testutils.SetupFolderData(db, user, "Mechanics", &parent.ID)

	payload := fmt.Sprintf(`{"move": true, "parent_id": %d}`, child.ID)
	req := makeAuthReq(t, a, server.URL, "PATCH", fmt.Sprintf("/api/v1/folders/%d", parent.ID), payload, user.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnprocessableEntity, "moving a folder under its child")
}

func TestFolder_foreignOwner(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	owner := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	intruder := testutils.SetupVerifiedUserData(db, "bob@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, owner, "Physics", nil)

	req := makeAuthReq(t, a, server.URL, "GET", fmt.Sprintf("/api/v1/folders/%d", folder.ID), "", intruder.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusNotFound, "foreign folders should read as missing")
}

func TestTrashFolderEndpoints(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "Physics", nil)

	// trash
	req := makeAuthReq(t, a, server.URL, "DELETE", fmt.Sprintf("/api/v1/folders/%d", folder.ID), "", user.ID)
	res := testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusNoContent, "trashing folder")

	// listed in trash
	req = makeAuthReq(t, a, server.URL, "GET", "/api/v1/trash", "", user.ID)
	res = testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "listing trash")

	var items []app.TrashItem
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}
	assert.Equal(t, len(items), 1, "trash count mismatch")
	assert.Equal(t, items[0].Kind, "folder", "trash kind mismatch")
	assert.Equal(t, items[0].ID, folder.ID, "trash id mismatch")

	// restore
	req = makeAuthReq(t, a, server.URL, "POST", fmt.Sprintf("/api/v1/folders/%d/restore", folder.ID), "", user.ID)
	res = testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusNoContent, "restoring folder")

	var restored database.Folder
	testutils.MustExec(t, db.First(&restored, folder.ID), "finding folder")
	assert.Equal(t, restored.DeletedAt == nil, true, "folder should be active again")
}

func TestRestoreFolder_notInTrash(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "Physics", nil)

	req := makeAuthReq(t, a, server.URL, "POST", fmt.Sprintf("/api/v1/folders/%d/restore", folder.ID), "", user.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusConflict, "restoring an active folder")
}

func TestDeleteFolderPermanent(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "Physics", nil)

	if err := a.SoftDeleteFolder(user, folder.ID); err != nil {
		t.Fatal(errors.Wrap(err, "trashing folder"))
	}

	req := makeAuthReq(t, a, server.URL, "DELETE", fmt.Sprintf("/api/v1/folders/%d/permanent", folder.ID), "", user.ID)
	res := testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusNoContent, "permanently deleting folder")

	var count int64
	testutils.MustExec(t, db.Model(&database.Folder{}).Where("id = ?", folder.ID).Count(&count), "counting folders")
	assert.Equal(t, count, int64(0), "folder row should be gone")
}

func TestShareFolder(t *testing.T) {
	t.Setenv("APP_ENV", "TEST")

	db := testutils.InitMemoryDB(t)
	a, _ := app.NewTest(db)
	server := MustNewServer(t, a)
	defer server.Close()

	user := testutils.SetupVerifiedUserData(db, "alice@example.com", "pass1234")
	folder := testutils.SetupFolderData(db, user, "Physics", nil)

	req := makeAuthReq(t, a, server.URL, "PUT", fmt.Sprintf("/api/v1/folders/%d/share", folder.ID), `{"public": true}`, user.ID)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "sharing folder")

	var got database.Folder
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}
	assert.Equal(t, got.Public, true, "folder should be public")

	var updated database.Folder
	testutils.MustExec(t, db.First(&updated, folder.ID), "finding folder")
	assert.NotEqual(t, updated.ShareToken, folder.ShareToken, "share token should rotate")
}
