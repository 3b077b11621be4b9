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
	"encoding/base64"
	"net/http"

	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/context"
	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/pkg/errors"
)

// NewFiles creates a new Files controller
func NewFiles(app *app.App) *Files {
	return &Files{app: app}
}

// Files is a file controller
type Files struct {
	app *app.App
}

// FileForm is the payload for uploading a file. The document content is
// base64-encoded.
type FileForm struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Create handles POST /v1/folders/{folderID}/files
func (f *Files) Create(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	var form FileForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	content, err := base64.StdEncoding.DecodeString(form.Content)
	if err != nil {
		handleJSONError(w, errors.Wrap(errBadRequest, "decoding content"), "decoding content")
		return
	}

	file, err := f.app.CreateFile(r.Context(), *user, folderID, form.Title, content)
	if err != nil {
		handleJSONError(w, err, "creating file")
		return
	}

	respondJSON(w, http.StatusCreated, file)
}

// Index handles GET /v1/folders/{folderID}/files
func (f *Files) Index(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	folderID, err := getIntParam(r, "folderID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	files, err := f.app.ListFiles(*user, folderID)
	if err != nil {
		handleJSONError(w, err, "listing files")
		return
	}

	respondJSON(w, http.StatusOK, files)
}

// Show handles GET /v1/files/{fileID}
func (f *Files) Show(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	file, err := f.app.GetFile(*user, fileID)
	if err != nil {
		handleJSONError(w, err, "finding file")
		return
	}

	respondJSON(w, http.StatusOK, file)
}

// Download handles GET /v1/files/{fileID}/download, returning a
// time-limited URL for the document
func (f *Files) Download(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	url, err := f.app.PresignFile(r.Context(), *user, fileID)
	if err != nil {
		handleJSONError(w, err, "presigning file")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Update handles PATCH /v1/files/{fileID}. A title renames the file; a
// folder_id moves it.
func (f *Files) Update(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	var form struct {
		Title    *string `json:"title"`
		FolderID *int    `json:"folder_id"`
	}
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if form.Title != nil {
		if _, err := f.app.RenameFile(*user, fileID, *form.Title); err != nil {
			handleJSONError(w, err, "renaming file")
			return
		}
	}
	if form.FolderID != nil {
		if _, err := f.app.MoveFile(*user, fileID, *form.FolderID); err != nil {
			handleJSONError(w, err, "moving file")
			return
		}
	}

	file, err := f.app.GetFile(*user, fileID)
	if err != nil {
		handleJSONError(w, err, "finding file")
		return
	}

	respondJSON(w, http.StatusOK, file)
}

// RecordView handles POST /v1/files/{fileID}/views
func (f *Files) RecordView(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.RecordFileView(*user, fileID); err != nil {
		handleJSONError(w, err, "recording view")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TagForm is the payload for adding or removing a tag
type TagForm struct {
	Tag string `json:"tag"`
}

// AddTag handles POST /v1/files/{fileID}/tags
func (f *Files) AddTag(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	var form TagForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	file, err := f.app.AddFileTag(*user, fileID, form.Tag)
	if err != nil {
		handleJSONError(w, err, "adding tag")
		return
	}

	respondJSON(w, http.StatusOK, file)
}

// RemoveTag handles DELETE /v1/files/{fileID}/tags
func (f *Files) RemoveTag(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	var form TagForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	file, err := f.app.RemoveFileTag(*user, fileID, form.Tag)
	if err != nil {
		handleJSONError(w, err, "removing tag")
		return
	}

	respondJSON(w, http.StatusOK, file)
}

// Search handles GET /v1/files?q=
func (f *Files) Search(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	files, err := f.app.SearchFiles(*user, r.URL.Query().Get("q"))
	if err != nil {
		handleJSONError(w, err, "searching files")
		return
	}
	if files == nil {
		files = []database.File{}
	}

	respondJSON(w, http.StatusOK, files)
}

// Delete handles DELETE /v1/files/{fileID}, moving the file to trash
func (f *Files) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.SoftDeleteFile(*user, fileID); err != nil {
		handleJSONError(w, err, "trashing file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /v1/files/{fileID}/restore
func (f *Files) Restore(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.RestoreFile(*user, fileID); err != nil {
		handleJSONError(w, err, "restoring file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeletePermanent handles DELETE /v1/files/{fileID}/permanent
func (f *Files) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	fileID, err := getIntParam(r, "fileID")
	if err != nil {
		handleJSONError(w, app.ErrNotFound, "parsing path")
		return
	}

	if err := f.app.PermanentlyDeleteFile(r.Context(), *user, fileID); err != nil {
		handleJSONError(w, err, "permanently deleting file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
