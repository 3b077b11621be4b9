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

package token

import (
	"testing"
	"time"

	"github.com/coursevault/coursevault/pkg/assert"
	"github.com/coursevault/coursevault/pkg/clock"
)

func TestIssueVerify(t *testing.T) {
	c := clock.NewMock()
	issuer := NewIssuer([]byte("test-secret"), 0, c)

	signed, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issuing: %v", err)
	}

	userID, err := issuer.Verify(signed)
	if err != nil {
		t.Fatalf("verifying: %v", err)
	}
	assert.Equal(t, userID, 42, "user id mismatch")
}

func TestVerifyExpired(t *testing.T) {
	c := clock.NewMock()
	issuer := NewIssuer([]byte("test-secret"), 15*time.Minute, c)

	signed, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issuing: %v", err)
	}

	c.Advance(16 * time.Minute)

	_, err = issuer.Verify(signed)
	assert.Equal(t, err, ErrInvalidToken, "expired token should be invalid")
}

func TestVerifyWrongKey(t *testing.T) {
	c := clock.NewMock()

	signed, err := NewIssuer([]byte("key-one"), 0, c).Issue(42)
	if err != nil {
		t.Fatalf("issuing: %v", err)
	}

	_, err = NewIssuer([]byte("key-two"), 0, c).Verify(signed)
	assert.Equal(t, err, ErrInvalidToken, "token signed with a different key should be invalid")
}

func TestVerifyGarbage(t *testing.T) {
	c := clock.NewMock()
	issuer := NewIssuer([]byte("test-secret"), 0, c)

	_, err := issuer.Verify("not-a-token")
	assert.Equal(t, err, ErrInvalidToken, "garbage token should be invalid")
}
