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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursevault/coursevault/pkg/assert"
)

func TestLimit(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.StatusCodeEquals(t, w.Code, http.StatusOK, "first request")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.StatusCodeEquals(t, w.Code, http.StatusTooManyRequests, "second request over the burst")
}

func TestLimit_separateVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest("GET", "/", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	second := httptest.NewRequest("GET", "/", nil)
	second.RemoteAddr = "10.0.0.2:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	assert.StatusCodeEquals(t, w.Code, http.StatusOK, "first visitor")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, second)
	assert.StatusCodeEquals(t, w.Code, http.StatusOK, "second visitor has its own budget")
}

func TestLookupIP(t *testing.T) {
	testCases := []struct {
		remoteAddr   string
		realIP       string
		forwardedFor string
		expected     string
	}{
		{remoteAddr: "10.0.0.1:1234", expected: "10.0.0.1:1234"},
		{remoteAddr: "10.0.0.1:1234", realIP: "1.2.3.4", expected: "1.2.3.4"},
		{remoteAddr: "10.0.0.1:1234", forwardedFor: "5.6.7.8, 1.2.3.4", expected: "5.6.7.8"},
		{remoteAddr: "10.0.0.1:1234", realIP: "1.2.3.4", forwardedFor: "5.6.7.8", expected: "5.6.7.8"},
	}

	for _, tc := range testCases {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if tc.realIP != "" {
			req.Header.Set("X-Real-IP", tc.realIP)
		}
		if tc.forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", tc.forwardedFor)
		}

		assert.Equal(t, lookupIP(req), tc.expected, "ip mismatch")
	}
}
