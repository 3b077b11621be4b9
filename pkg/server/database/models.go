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

package database

import (
	"time"
)

// Model is the base model definition
type Model struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// User is a model for a user
type User struct {
	Model
	UUID          string     `json:"uuid" gorm:"uniqueIndex;type:text"`
	Email         string     `json:"email" gorm:"uniqueIndex"`
	Name          string     `json:"name"`
	Password      NullString `json:"-"`
	EmailVerified bool       `json:"email_verified" gorm:"default:false"`
	LastLoginAt   *time.Time `json:"-"`
}

// VerificationCode is a model for a short-lived numeric code proving control
// of an email address. At most one unused code per (user, purpose) is
// authoritative; creating a new one marks older unused codes used.
type VerificationCode struct {
	Model
	UserID      int       `gorm:"index:idx_verification_codes_user_created,priority:1"`
	Purpose     string    `gorm:"index"`
	Code        string    `gorm:"index"`
	ExpiresAt   time.Time
	Attempts    int    `gorm:"default:0"`
	Used        bool   `gorm:"default:false"`
	Idempotency string `gorm:"uniqueIndex;type:text"`
}

// Session represents a user session. Its key doubles as the refresh token
// for the token pair issued at login.
type Session struct {
	Model
	UserID     int    `gorm:"index"`
	Key        string `gorm:"index"`
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// Folder is a model for a folder. Folders form a tree via ParentID.
type Folder struct {
	Model
	Title      string     `json:"title"`
	Slug       string     `json:"slug" gorm:"uniqueIndex;type:text"`
	UserID     int        `json:"user_id" gorm:"index"`
	ParentID   *int       `json:"parent_id" gorm:"index"`
	Public     bool       `json:"public" gorm:"default:false"`
	ShareToken string     `json:"-" gorm:"uniqueIndex;type:text"`
	DeletedAt  *time.Time `json:"deleted_at" gorm:"index"`
}

// Active reports whether the folder is not in trash
func (f Folder) Active() bool {
	return f.DeletedAt == nil
}

// File is a model for an uploaded document
type File struct {
	Model
	FolderID         int        `json:"folder_id" gorm:"index"`
	Title            string     `json:"title"`
	BlobKey          string     `json:"-"`
	Tags             []string   `json:"tags" gorm:"serializer:json"`
	ExtractionStatus string     `json:"extraction_status" gorm:"default:pending"`
	ExtractedText    NullString `json:"-"`
	ViewCount        int        `json:"view_count" gorm:"default:0"`
	LastViewedAt     *time.Time `json:"last_viewed_at"`
	Public           bool       `json:"public" gorm:"default:false"`
	ShareToken       string     `json:"-" gorm:"uniqueIndex;type:text"`
	DeletedAt        *time.Time `json:"deleted_at" gorm:"index"`
}

// Active reports whether the file is not in trash
func (f File) Active() bool {
	return f.DeletedAt == nil
}
