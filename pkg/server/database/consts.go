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

const (
	// VerificationPurposeEmail is a purpose of a code for verifying an email address
	VerificationPurposeEmail = "email_verification"
	// VerificationPurposeResetPassword is a purpose of a code for resetting password
	VerificationPurposeResetPassword = "password_reset"
)

const (
	// ExtractionStatusPending indicates text extraction has not started
	ExtractionStatusPending = "pending"
	// ExtractionStatusProcessing indicates text extraction is in progress
	ExtractionStatusProcessing = "processing"
	// ExtractionStatusCompleted indicates text extraction finished
	ExtractionStatusCompleted = "completed"
	// ExtractionStatusFailed indicates text extraction failed
	ExtractionStatusFailed = "failed"
)
