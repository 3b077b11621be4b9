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
	"sort"
	"time"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/coursevault/coursevault/pkg/server/log"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// collectSubtree walks the folder tree depth-first from the given root and
// returns the ids of every folder in the subtree, root included. A parent
// pointer cycle is a data integrity fault, caught by the visited set rather
// than looping.
func collectSubtree(tx *gorm.DB, rootID int) ([]int, error) {
	visited := map[int]bool{}
	var order []int

	stack := []int{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			return nil, pkgErrors.Wrapf(ErrFolderCycle, "folder %d visited twice", id)
		}
		visited[id] = true
		order = append(order, id)

		var childIDs []int
		err := tx.Model(&database.Folder{}).
			Where("parent_id = ?", id).
			Pluck("id", &childIDs).Error
		if err != nil {
			return nil, pkgErrors.Wrap(err, "finding child folders")
		}

		stack = append(stack, childIDs...)
	}

	return order, nil
}

// SoftDeleteFolder moves the folder and everything under it to trash. Every
// descendant folder and file gets the same deletion timestamp, which is what
// the one-level restore policy keys on.
func (a *App) SoftDeleteFolder(user database.User, folderID int) error {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return err
	}
	if !folder.Active() {
		// Already in trash
		return nil
	}

	now := a.Clock.Now()

	return a.DB.Transaction(func(tx *gorm.DB) error {
		ids, err := collectSubtree(tx, folder.ID)
		if err != nil {
			return err
		}

		err = tx.Model(&database.Folder{}).
			Where("id IN ? AND deleted_at IS NULL", ids).
			Update("deleted_at", &now).Error
		if err != nil {
			return pkgErrors.Wrap(err, "trashing folders")
		}

		err = tx.Model(&database.File{}).
			Where("folder_id IN ? AND deleted_at IS NULL", ids).
			Update("deleted_at", &now).Error
		if err != nil {
			return pkgErrors.Wrap(err, "trashing files")
		}

		return nil
	})
}

// SoftDeleteFile moves a single file to trash
func (a *App) SoftDeleteFile(user database.User, fileID int) error {
	file, err := getOwnedFile(a.DB, user, fileID)
	if err != nil {
		return err
	}
	if !file.Active() {
		return nil
	}

	now := a.Clock.Now()
	if err := a.DB.Model(&file).Update("deleted_at", &now).Error; err != nil {
		return pkgErrors.Wrap(err, "trashing file")
	}

	return nil
}

// RestoreFolder takes the folder out of trash along with its direct
// children and files, mirroring the delete cascade one level down. A child
// that was trashed on its own before the folder keeps its earlier deletion
// timestamp and stays in trash.
func (a *App) RestoreFolder(user database.User, folderID int) error {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return err
	}
	if folder.Active() {
		return ErrNotInTrash
	}

	trashedAt := *folder.DeletedAt

	return a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&folder).Update("deleted_at", nil).Error; err != nil {
			return pkgErrors.Wrap(err, "restoring folder")
		}

		err := tx.Model(&database.Folder{}).
			Where("parent_id = ? AND deleted_at >= ?", folder.ID, trashedAt).
			Update("deleted_at", nil).Error
		if err != nil {
			return pkgErrors.Wrap(err, "restoring child folders")
		}

		err = tx.Model(&database.File{}).
			Where("folder_id = ? AND deleted_at >= ?", folder.ID, trashedAt).
			Update("deleted_at", nil).Error
		if err != nil {
			return pkgErrors.Wrap(err, "restoring files")
		}

		return nil
	})
}

// RestoreFile takes a single file out of trash
func (a *App) RestoreFile(user database.User, fileID int) error {
	file, err := getOwnedFile(a.DB, user, fileID)
	if err != nil {
		return err
	}
	if file.Active() {
		return ErrNotInTrash
	}

	if err := a.DB.Model(&file).Update("deleted_at", nil).Error; err != nil {
		return pkgErrors.Wrap(err, "restoring file")
	}

	return nil
}

// deleteFolderForever hard-deletes the folder subtree rooted at the given
// ids: every file row, every folder row, and each file's blob. Blob deletes
// are best-effort; the rows go away regardless.
func (a *App) deleteFolderForever(ctx context.Context, tx *gorm.DB, ids []int) error {
	var files []database.File
	if err := tx.Where("folder_id IN ?", ids).Find(&files).Error; err != nil {
		return pkgErrors.Wrap(err, "finding files")
	}

	for _, f := range files {
		if err := a.Storage.Delete(ctx, f.BlobKey); err != nil {
			log.WithFields(log.Fields{
				"file_id": f.ID,
				"key":     f.BlobKey,
			}).ErrorWrap(err, "deleting blob")
		}
	}

	if err := tx.Where("folder_id IN ?", ids).Delete(&database.File{}).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting file rows")
	}
	if err := tx.Where("id IN ?", ids).Delete(&database.Folder{}).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting folder rows")
	}

	return nil
}

// PermanentlyDeleteFolder irreversibly removes a trashed folder, its
// subtree, and their blobs
func (a *App) PermanentlyDeleteFolder(ctx context.Context, user database.User, folderID int) error {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return err
	}
	if folder.Active() {
		return ErrNotInTrash
	}

	return a.DB.Transaction(func(tx *gorm.DB) error {
		ids, err := collectSubtree(tx, folder.ID)
		if err != nil {
			return err
		}

		return a.deleteFolderForever(ctx, tx, ids)
	})
}

// PermanentlyDeleteFile irreversibly removes a trashed file and its blob
func (a *App) PermanentlyDeleteFile(ctx context.Context, user database.User, fileID int) error {
	file, err := getOwnedFile(a.DB, user, fileID)
	if err != nil {
		return err
	}
	if file.Active() {
		return ErrNotInTrash
	}

	if err := a.Storage.Delete(ctx, file.BlobKey); err != nil {
		log.WithFields(log.Fields{
			"file_id": file.ID,
			"key":     file.BlobKey,
		}).ErrorWrap(err, "deleting blob")
	}

	if err := a.DB.Delete(&file).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting file row")
	}

	return nil
}

// TrashItem is a trashed folder or file as shown in the trash listing
type TrashItem struct {
	Kind      string    `json:"kind"`
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ListTrash returns the user's trashed folders and files, most recently
// trashed first
func (a *App) ListTrash(user database.User) ([]TrashItem, error) {
	var folders []database.Folder
	err := a.DB.
		Where("user_id = ? AND deleted_at IS NOT NULL", user.ID).
		Find(&folders).Error
	if err != nil {
		return nil, pkgErrors.Wrap(err, "listing trashed folders")
	}

	var files []database.File
	err = a.DB.
		Joins("JOIN folders ON folders.id = files.folder_id").
		Where("folders.user_id = ? AND files.deleted_at IS NOT NULL", user.ID).
		Find(&files).Error
	if err != nil {
		return nil, pkgErrors.Wrap(err, "listing trashed files")
	}

	items := make([]TrashItem, 0, len(folders)+len(files))
	for _, f := range folders {
		items = append(items, TrashItem{Kind: "folder", ID: f.ID, Title: f.Title, DeletedAt: *f.DeletedAt})
	}
	for _, f := range files {
		items = append(items, TrashItem{Kind: "file", ID: f.ID, Title: f.Title, DeletedAt: *f.DeletedAt})
	}

	// Newest first; ties broken by kind then id for a stable listing
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.DeletedAt.Equal(b.DeletedAt) {
			return a.DeletedAt.After(b.DeletedAt)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})

	return items, nil
}
