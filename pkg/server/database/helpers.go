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
	"database/sql"
	"encoding/json"
)

// NullString wraps sql.NullString to serialize as a plain JSON string
type NullString struct {
	sql.NullString
}

// ToNullString converts the given string to a NullString. An empty string
// is treated as null.
func ToNullString(s string) NullString {
	return NullString{
		NullString: sql.NullString{
			String: s,
			Valid:  s != "",
		},
	}
}

// MarshalJSON implements json.Marshaler
func (s NullString) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(s.String)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *NullString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		s.Valid = false
		s.String = ""
		return nil
	}

	if err := json.Unmarshal(b, &s.String); err != nil {
		return err
	}
	s.Valid = true

	return nil
}
