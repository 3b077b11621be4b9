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
	"net/http"

	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/context"
)

// NewFolders creates a new Folders controller
func NewFolders(app *app.App) *Folders {
	return &Folders{app: app}
}

// Folders is a folder controller
type Folders struct {
	app *app.App
}

// FolderForm is the payload for creating or updating a folder
type FolderForm struct {
	Title    string `json:"title"`
	ParentID *int   `json:"parent_id"`
}

// Create handles POST /v1/folders
func (f *Folders) Create(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var form FolderForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	folder, err := f.app.CreateFolder(*user, form.Title, form.ParentID)
	if err != nil {
		handleJSONError(w, err, "creating folder")
		return
	}

	respondJSON(w, http.StatusCreated, folder)
}

// Index handles GET /v1/folders. An optional parent_id query parameter
// narrows the listing to a parent; without it the root level is listed.
func (f *Folders) Index(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var parentID *int
	if v := r.URL.Query().Get("parent_id"); v != "" {
		id, err := getIntQuery(v, "parent_id")
		if err != nil {
			handleJSONError(w, err, "parsing query")
			return
		}
		parentID = &id
	}

	folders, err := f.app.ListFolders(*user, parentID)
	if err != nil {
		handleJSONError(w, err, "listing folders")
		return
	}

	respondJSON(w, http.StatusOK, folders)
}

// Show handles GET /v1/folders/{folderID}
func (f *Folders) Show(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	folder, err := f.app.GetFolder(*user, folderID)
	if err != nil {
		handleJSONError(w, err, "finding folder")
		return
	}

	respondJSON(w, http.StatusOK, folder)
}

// Update handles PATCH /v1/folders/{folderID}. A title renames the folder;
// a parent_id moves it.
func (f *Folders) Update(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	var form struct {
		Title    *string `json:"title"`
		ParentID *int    `json:"parent_id"`
		Move     bool    `json:"move"`
	}
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	var folder interface{}
	if form.Title != nil {
		folder, err = f.app.RenameFolder(*user, folderID, *form.Title)
		if err != nil {
			handleJSONError(w, err, "renaming folder")
			return
		}
	}
	if form.Move {
		folder, err = f.app.MoveFolder(*user, folderID, form.ParentID)
		if err != nil {
			handleJSONError(w, err, "moving folder")
			return
		}
	}
	if folder == nil {
		folder, err = f.app.GetFolder(*user, folderID)
		if err != nil {
			handleJSONError(w, err, "finding folder")
			return
		}
	}

	respondJSON(w, http.StatusOK, folder)
}

// Share handles PUT /v1/folders/{folderID}/share
func (f *Folders) Share(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	var form struct {
		Public bool `json:"public"`
	}
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	folder, err := f.app.SetFolderPublic(*user, folderID, form.Public)
	if err != nil {
		handleJSONError(w, err, "updating folder sharing")
		return
	}

	respondJSON(w, http.StatusOK, folder)
}

// Delete handles DELETE /v1/folders/{folderID}, moving the folder and its
// subtree to trash
func (f *Folders) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.SoftDeleteFolder(*user, folderID); err != nil {
		handleJSONError(w, err, "trashing folder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /v1/folders/{folderID}/restore
func (f *Folders) Restore(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.RestoreFolder(*user, folderID); err != nil {
		handleJSONError(w, err, "restoring folder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeletePermanent handles DELETE /v1/folders/{folderID}/permanent
func (f *Folders) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.PermanentlyDeleteFolder(r.Context(), *user, folderID); err != nil {
		handleJSONError(w, err, "permanently deleting folder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Trash handles GET /v1/trash
func (f *Folders) Trash(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	items, err := f.app.ListTrash(*user)
	if err != nil {
		handleJSONError(w, err, "listing trash")
		return
	}

	respondJSON(w, http.StatusOK, items)
}
