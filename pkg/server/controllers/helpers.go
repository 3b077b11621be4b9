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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coursevault/coursevault/pkg/server/app"
	"github.com/coursevault/coursevault/pkg/server/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// errBadRequest marks malformed client input
var errBadRequest = errors.New("malformed request")

// parseRequestData decodes the JSON request body into the given value
func parseRequestData(r *http.Request, data interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return errors.Wrapf(errBadRequest, "decoding payload: %v", err)
	}

	return nil
}

// getIntParam reads an integer path parameter from the route
func getIntParam(r *http.Request, name string) (int, error) {
	vars := mux.Vars(r)

	val, err := strconv.Atoi(vars[name])
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "invalid %s", name)
	}

	return val, nil
}

// getIntQuery parses an integer query parameter value
func getIntQuery(val, name string) (int, error) {
	ret, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "invalid %s", name)
	}

	return ret, nil
}

// respondJSON writes the given payload as a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}

// errResp is the body of an error response
type errResp struct {
	Error string `json:"error"`
	Email string `json:"email,omitempty"`
}

// statusForError maps an application error to an HTTP status code
func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, app.ErrEmailRequired),
		errors.Is(err, app.ErrNameRequired),
		errors.Is(err, app.ErrPasswordRequired),
		errors.Is(err, app.ErrPasswordTooShort),
		errors.Is(err, app.ErrPasswordConfirmationMismatch),
		errors.Is(err, app.ErrCodeInvalidFormat),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, app.ErrTagRequired),
		errors.Is(err, app.ErrNoActiveCode),
		errors.Is(err, app.ErrCodeExpired),
		errors.Is(err, app.ErrCodeAttemptsExceeded),
		errors.Is(err, app.ErrCodeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrLoginInvalid),
		errors.Is(err, app.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrDuplicateEmail),
		errors.Is(err, app.ErrNotInTrash):
		return http.StatusConflict
	case errors.Is(err, app.ErrFolderCycle),
		errors.Is(err, app.ErrFolderTooDeep):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleJSONError responds with the error mapped to its HTTP status. 5xx
// errors hide the message and get logged instead.
func handleJSONError(w http.ResponseWriter, err error, msg string) {
	var locked app.AccountLockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(locked.RetryAfter.Seconds())))
		respondJSON(w, http.StatusTooManyRequests, errResp{Error: locked.Error()})
		return
	}

	var limited app.RateLimitedError
	if errors.As(err, &limited) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limited.RetryAfter.Seconds())))
		respondJSON(w, http.StatusTooManyRequests, errResp{Error: limited.Error()})
		return
	}

	var unverified app.EmailNotVerifiedError
	if errors.As(err, &unverified) {
		respondJSON(w, http.StatusForbidden, errResp{Error: unverified.Error(), Email: unverified.Email})
		return
	}

	statusCode := statusForError(err)
	if statusCode >= 500 {
		log.WithFields(log.Fields{
			"statusCode": statusCode,
		}).ErrorWrap(err, msg)
		respondJSON(w, statusCode, errResp{Error: http.StatusText(statusCode)})
		return
	}

	respondJSON(w, statusCode, errResp{Error: err.Error()})
}
