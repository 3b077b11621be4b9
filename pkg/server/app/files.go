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
	"github.com/coursevault/coursevault/pkg/server/storage"
	"github.com/google/uuid"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// presignTTL is how long a download link stays valid
const presignTTL = 15 * time.Minute

// getOwnedFile loads a file and checks that its folder belongs to the user
func getOwnedFile(db *gorm.DB, user database.User, fileID int) (database.File, error) {
	var file database.File
	err := db.
		Joins("JOIN folders ON folders.id = files.folder_id").
		Where("files.id = ? AND folders.user_id = ?", fileID, user.ID).
		First(&file).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return database.File{}, ErrNotFound
	}
	if err != nil {
		return database.File{}, pkgErrors.Wrap(err, "finding file")
	}

	return file, nil
}

// CreateFile uploads the document content to the blob store and records the
// file under the given folder
func (a *App) CreateFile(ctx context.Context, user database.User, folderID int, title string, content []byte) (database.File, error) {
	if title == "" {
		return database.File{}, ErrTitleRequired
	}

	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return database.File{}, err
	}
	if !folder.Active() {
		return database.File{}, ErrNotFound
	}

	key := storage.NewObjectKey()
	if err := a.Storage.Put(ctx, key, content); err != nil {
		return database.File{}, pkgErrors.Wrap(err, "uploading document")
	}

	file := database.File{
		FolderID:         folder.ID,
		Title:            title,
		BlobKey:          key,
		ExtractionStatus: database.ExtractionStatusPending,
		ShareToken:       uuid.NewString(),
	}
	if err := a.DB.Create(&file).Error; err != nil {
		// The record failed; the orphaned blob gets collected later.
		if derr := a.Storage.Delete(ctx, key); derr != nil {
			return database.File{}, pkgErrors.Wrap(err, "saving file")
		}
		return database.File{}, pkgErrors.Wrap(err, "saving file")
	}

	return file, nil
}

// GetFile returns an active file owned by the user
func (a *App) GetFile(user database.User, fileID int) (database.File, error) {
	file, err := getOwnedFile(a.DB, user, fileID)
	if err != nil {
		return database.File{}, err
	}
	if !file.Active() {
		return database.File{}, ErrNotFound
	}

	return file, nil
}

// ListFiles returns the active files in the given folder
func (a *App) ListFiles(user database.User, folderID int) ([]database.File, error) {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.Active() {
		return nil, ErrNotFound
	}

	var files []database.File
	err = a.DB.
		Where("folder_id = ? AND deleted_at IS NULL", folder.ID).
		Order("title ASC").
		Find(&files).Error
	if err != nil {
		return nil, pkgErrors.Wrap(err, "listing files")
	}

	return files, nil
}

// PresignFile returns a time-limited download URL for the file's document
func (a *App) PresignFile(ctx context.Context, user database.User, fileID int) (string, error) {
	file, err := a.GetFile(user, fileID)
	if err != nil {
		return "", err
	}

	url, err := a.Storage.Presign(ctx, file.BlobKey, presignTTL)
	if err != nil {
		return "", pkgErrors.Wrap(err, "presigning document")
	}

	return url, nil
}

// RenameFile updates the file's title
func (a *App) RenameFile(user database.User, fileID int, title string) (database.File, error) {
	if title == "" {
		return database.File{}, ErrTitleRequired
	}

	file, err := a.GetFile(user, fileID)
	if err != nil {
		return database.File{}, err
	}

	if err := a.DB.Model(&file).Update("title", title).Error; err != nil {
		return database.File{}, pkgErrors.Wrap(err, "renaming file")
	}

	return file, nil
}

// MoveFile moves the file to another active folder owned by the user
func (a *App) MoveFile(user database.User, fileID, folderID int) (database.File, error) {
	file, err := a.GetFile(user, fileID)
	if err != nil {
		return database.File{}, err
	}

	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return database.File{}, err
	}
	if !folder.Active() {
		return database.File{}, ErrNotFound
	}

	if err := a.DB.Model(&file).Update("folder_id", folder.ID).Error; err != nil {
		return database.File{}, pkgErrors.Wrap(err, "moving file")
	}
	file.FolderID = folder.ID

	return file, nil
}

// RecordFileView bumps the view counter and the last-viewed timestamp
func (a *App) RecordFileView(user database.User, fileID int) error {
	file, err := a.GetFile(user, fileID)
	if err != nil {
		return err
	}

	now := a.Clock.Now()
	err = a.DB.Model(&file).Updates(map[string]interface{}{
		"view_count":     gorm.Expr("view_count + 1"),
		"last_viewed_at": &now,
	}).Error
	if err != nil {
		return pkgErrors.Wrap(err, "recording view")
	}

	return nil
}

// AddFileTag adds a tag to the file. Adding a tag it already has is a
// no-op.
func (a *App) AddFileTag(user database.User, fileID int, tag string) (database.File, error) {
	if tag == "" {
		return database.File{}, ErrTagRequired
	}

	file, err := a.GetFile(user, fileID)
	if err != nil {
		return database.File{}, err
	}

	for _, t := range file.Tags {
		if t == tag {
			return file, nil
		}
	}

	file.Tags = append(file.Tags, tag)
	if err := a.DB.Model(&file).Update("tags", file.Tags).Error; err != nil {
		return database.File{}, pkgErrors.Wrap(err, "adding tag")
	}

	return file, nil
}

// RemoveFileTag removes a tag from the file. Removing a missing tag is a
// no-op.
func (a *App) RemoveFileTag(user database.User, fileID int, tag string) (database.File, error) {
	file, err := a.GetFile(user, fileID)
	if err != nil {
		return database.File{}, err
	}

	kept := file.Tags[:0]
	for _, t := range file.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(file.Tags) {
		return file, nil
	}

	file.Tags = kept
	if err := a.DB.Model(&file).Update("tags", file.Tags).Error; err != nil {
		return database.File{}, pkgErrors.Wrap(err, "removing tag")
	}

	return file, nil
}

// validExtractionTransition encodes the text extraction state machine.
// Failed extractions may be retried by going back to processing.
func validExtractionTransition(from, to string) bool {
	switch from {
	case database.ExtractionStatusPending:
		return to == database.ExtractionStatusProcessing
	case database.ExtractionStatusProcessing:
		return to == database.ExtractionStatusCompleted || to == database.ExtractionStatusFailed
	case database.ExtractionStatusFailed:
		return to == database.ExtractionStatusProcessing
	default:
		return false
	}
}

// SetExtractionStatus advances the file's text extraction status. The
// extracted text is stored only on the transition to completed.
func SetExtractionStatus(db *gorm.DB, file *database.File, status, extractedText string) error {
	if !validExtractionTransition(file.ExtractionStatus, status) {
		return ErrExtractionTransition
	}

	updates := map[string]interface{}{"extraction_status": status}
	if status == database.ExtractionStatusCompleted {
		updates["extracted_text"] = database.ToNullString(extractedText)
	}
	if err := db.Model(file).Updates(updates).Error; err != nil {
		return pkgErrors.Wrap(err, "updating extraction status")
	}
	file.ExtractionStatus = status

	return nil
}

// SearchFiles returns the user's active files whose title, tags or
// extracted text match the query
func (a *App) SearchFiles(user database.User, query string) ([]database.File, error) {
	if query == "" {
		return nil, nil
	}

	pattern := "%" + query + "%"

	var files []database.File
	err := a.DB.
		Joins("JOIN folders ON folders.id = files.folder_id").
		Where("folders.user_id = ? AND files.deleted_at IS NULL", user.ID).
		Where("files.title LIKE ? OR files.tags LIKE ? OR files.extracted_text LIKE ?", pattern, pattern, pattern).
		Order("files.title ASC").
		Find(&files).Error
	if err != nil {
		return nil, pkgErrors.Wrap(err, "searching files")
	}

	return files, nil
}
