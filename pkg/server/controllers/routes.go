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
	"net/http"

	"github.com/coursevault/coursevault/pkg/server/app"
	mw "github.com/coursevault/coursevault/pkg/server/middleware"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
}

// NewAPIRoutes returns the api routes
func NewAPIRoutes(a *app.App, c *Controllers) []Route {
	ret := []Route{
		{"POST", "/v1/signin", c.Users.Login, true},
		{"POST", "/v1/signout", c.Users.Logout, true},
		{"POST", "/v1/token/refresh", c.Users.Refresh, true},
		{"POST", "/v1/verify-email", c.Users.VerifyEmail, true},
		{"POST", "/v1/resend-verification", c.Users.ResendVerification, true},
		{"POST", "/v1/password-reset", c.Users.CreatePasswordReset, true},
		{"PATCH", "/v1/password-reset", c.Users.PasswordReset, true},
		{"GET", "/v1/me", mw.Auth(a, c.Users.Me), true},
		{"PATCH", "/v1/account/profile", mw.Auth(a, c.Users.ProfileUpdate), true},

		{"GET", "/v1/folders", mw.Auth(a, c.Folders.Index), true},
		{"POST", "/v1/folders", mw.Auth(a, c.Folders.Create), true},
		{"GET", "/v1/folders/{folderID}", mw.Auth(a, c.Folders.Show), true},
		{"PATCH", "/v1/folders/{folderID}", mw.Auth(a, c.Folders.Update), true},
		{"PUT", "/v1/folders/{folderID}/share", mw.Auth(a, c.Folders.Share), true},
		{"DELETE", "/v1/folders/{folderID}", mw.Auth(a, c.Folders.Delete), true},
		{"POST", "/v1/folders/{folderID}/restore", mw.Auth(a, c.Folders.Restore), true},
		{"DELETE", "/v1/folders/{folderID}/permanent", mw.Auth(a, c.Folders.DeletePermanent), true},
		{"GET", "/v1/trash", mw.Auth(a, c.Folders.Trash), true},

		{"GET", "/v1/files", mw.Auth(a, c.Files.Search), true},
		{"POST", "/v1/folders/{folderID}/files", mw.Auth(a, c.Files.Create), true},
		{"GET", "/v1/folders/{folderID}/files", mw.Auth(a, c.Files.Index), true},
		{"GET", "/v1/files/{fileID}", mw.Auth(a, c.Files.Show), true},
		{"PATCH", "/v1/files/{fileID}", mw.Auth(a, c.Files.Update), true},
		{"GET", "/v1/files/{fileID}/download", mw.Auth(a, c.Files.Download), true},
		{"POST", "/v1/files/{fileID}/views", mw.Auth(a, c.Files.RecordView), true},
		{"POST", "/v1/files/{fileID}/tags", mw.Auth(a, c.Files.AddTag), true},
		{"DELETE", "/v1/files/{fileID}/tags", mw.Auth(a, c.Files.RemoveTag), true},
		{"DELETE", "/v1/files/{fileID}", mw.Auth(a, c.Files.Delete), true},
		{"POST", "/v1/files/{fileID}/restore", mw.Auth(a, c.Files.Restore), true},
		{"DELETE", "/v1/files/{fileID}/permanent", mw.Auth(a, c.Files.DeletePermanent), true},

		{"GET", "/health", c.Health.Index, true},
	}

	if !a.DisableRegistration {
		ret = append(ret, Route{"POST", "/v1/register", c.Users.Create, true})
	}

	return ret
}

func registerRoutes(router *mux.Router, wrapper mw.Middleware, app *app.App, routes []Route) {
	for _, route := range routes {
		wrappedHandler := wrapper(route.Handler, app, route.RateLimit)

		router.
			Handle(route.Pattern, wrappedHandler).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, mw.APIMw, app, rc.APIRoutes)

	router.HandleFunc("/health", rc.Controllers.Health.Index).Methods("GET")

	router.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /"))
	})

	return mw.Global(router), nil
}
