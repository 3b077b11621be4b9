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
	"fmt"

	"github.com/coursevault/coursevault/pkg/server/database"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// maxFolderDepth bounds folder nesting. The cascade walk and the ancestor
// walk both rely on trees staying shallow.
const maxFolderDepth = 32

// NewFolderSlug derives a URL slug from the title with a random suffix to
// keep slugs unique without serializing on the title
func NewFolderSlug(title string) string {
	return fmt.Sprintf("%s-%s", slug.Make(title), uuid.NewString()[:8])
}

// getOwnedFolder loads a folder and checks ownership. Folders of other
// users are indistinguishable from missing ones.
func getOwnedFolder(db *gorm.DB, user database.User, folderID int) (database.Folder, error) {
	var folder database.Folder
	err := db.Where("id = ? AND user_id = ?", folderID, user.ID).First(&folder).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return database.Folder{}, ErrNotFound
	}
	if err != nil {
		return database.Folder{}, pkgErrors.Wrap(err, "finding folder")
	}

	return folder, nil
}

// folderDepth returns the number of ancestors above the folder with the
// given parent pointer. It errors out past maxFolderDepth instead of
// walking a corrupt chain forever.
func folderDepth(db *gorm.DB, user database.User, parentID *int) (int, error) {
	depth := 0
	for parentID != nil {
		depth++
		if depth > maxFolderDepth {
			return 0, ErrFolderTooDeep
		}

		parent, err := getOwnedFolder(db, user, *parentID)
		if err != nil {
			return 0, err
		}
		parentID = parent.ParentID
	}

	return depth, nil
}

// CreateFolder creates a folder for the user, optionally under a parent
func (a *App) CreateFolder(user database.User, title string, parentID *int) (database.Folder, error) {
	if title == "" {
		return database.Folder{}, ErrTitleRequired
	}

	if parentID != nil {
		parent, err := getOwnedFolder(a.DB, user, *parentID)
		if err != nil {
			return database.Folder{}, err
		}
		if !parent.Active() {
			return database.Folder{}, ErrNotFound
		}

		depth, err := folderDepth(a.DB, user, parentID)
		if err != nil {
			return database.Folder{}, err
		}
		if depth >= maxFolderDepth {
			return database.Folder{}, ErrFolderTooDeep
		}
	}

	folder := database.Folder{
		Title:      title,
		Slug:       NewFolderSlug(title),
		UserID:     user.ID,
		ParentID:   parentID,
		ShareToken: uuid.NewString(),
	}
	if err := a.DB.Create(&folder).Error; err != nil {
		return database.Folder{}, pkgErrors.Wrap(err, "saving folder")
	}

	return folder, nil
}

// RenameFolder updates the folder's title. The slug is derived from the
// title, so it is regenerated along with it.
func (a *App) RenameFolder(user database.User, folderID int, title string) (database.Folder, error) {
	if title == "" {
		return database.Folder{}, ErrTitleRequired
	}

	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return database.Folder{}, err
	}
	if !folder.Active() {
		return database.Folder{}, ErrNotFound
	}

	updates := map[string]interface{}{
		"title": title,
		"slug":  NewFolderSlug(title),
	}
	if err := a.DB.Model(&folder).Updates(updates).Error; err != nil {
		return database.Folder{}, pkgErrors.Wrap(err, "renaming folder")
	}

	return folder, nil
}

// MoveFolder reparents a folder. Moving a folder under itself or any of
// its descendants is rejected, since that would detach the subtree from
// the root.
func (a *App) MoveFolder(user database.User, folderID int, newParentID *int) (database.Folder, error) {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return database.Folder{}, err
	}
	if !folder.Active() {
		return database.Folder{}, ErrNotFound
	}

	if newParentID != nil {
		if *newParentID == folder.ID {
			return database.Folder{}, ErrFolderCycle
		}

		parent, err := getOwnedFolder(a.DB, user, *newParentID)
		if err != nil {
			return database.Folder{}, err
		}
		if !parent.Active() {
			return database.Folder{}, ErrNotFound
		}

		// Walk the new parent's ancestor chain. Finding the folder there
		// means the destination is inside its own subtree.
		cursor := parent
		for i := 0; i < maxFolderDepth; i++ {
			if cursor.ID == folder.ID {
				return database.Folder{}, ErrFolderCycle
			}
			if cursor.ParentID == nil {
				break
			}

			cursor, err = getOwnedFolder(a.DB, user, *cursor.ParentID)
			if err != nil {
				return database.Folder{}, err
			}
		}

		depth, err := folderDepth(a.DB, user, newParentID)
		if err != nil {
			return database.Folder{}, err
		}
		if depth >= maxFolderDepth {
			return database.Folder{}, ErrFolderTooDeep
		}
	}

	if err := a.DB.Model(&folder).Update("parent_id", newParentID).Error; err != nil {
		return database.Folder{}, pkgErrors.Wrap(err, "moving folder")
	}
	folder.ParentID = newParentID

	return folder, nil
}

// GetFolder returns an active folder owned by the user
func (a *App) GetFolder(user database.User, folderID int) (database.Folder, error) {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return database.Folder{}, err
	}
	if !folder.Active() {
		return database.Folder{}, ErrNotFound
	}

	return folder, nil
}

// ListFolders returns the user's active folders under the given parent.
// A nil parent lists the root level.
func (a *App) ListFolders(user database.User, parentID *int) ([]database.Folder, error) {
	var folders []database.Folder

	q := a.DB.Where("user_id = ? AND deleted_at IS NULL", user.ID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}

	if err := q.Order("title ASC").Find(&folders).Error; err != nil {
		return nil, pkgErrors.Wrap(err, "listing folders")
	}

	return folders, nil
}

// SetFolderPublic toggles link sharing for the folder. Enabling it rotates
// the share token so that previously shared links do not come back to life.
func (a *App) SetFolderPublic(user database.User, folderID int, public bool) (database.Folder, error) {
	folder, err := getOwnedFolder(a.DB, user, folderID)
	if err != nil {
		return database.Folder{}, err
	}
	if !folder.Active() {
		return database.Folder{}, ErrNotFound
	}

	updates := map[string]interface{}{"public": public}
	if public && !folder.Public {
		updates["share_token"] = uuid.NewString()
	}
	if err := a.DB.Model(&folder).Updates(updates).Error; err != nil {
		return database.Folder{}, pkgErrors.Wrap(err, "updating folder sharing")
	}

	return folder, nil
}

// GetSharedFolder looks up a folder by its share token. Only public,
// active folders are visible this way.
func (a *App) GetSharedFolder(token string) (database.Folder, error) {
	var folder database.Folder
	err := a.DB.Where("share_token = ? AND public = ? AND deleted_at IS NULL", token, true).First(&folder).Error
	if pkgErrors.Is(err, gorm.ErrRecordNotFound) {
		return database.Folder{}, ErrNotFound
	}
	if err != nil {
		return database.Folder{}, pkgErrors.Wrap(err, "finding shared folder")
	}

	return folder, nil
}
