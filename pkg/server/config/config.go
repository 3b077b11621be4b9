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

package config

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	// AppEnvProduction represents an app environment for production.
	AppEnvProduction string = "PRODUCTION"
	// DefaultDataDir is the default directory name for CourseVault data
	DefaultDataDir = "coursevault"
	// DefaultDBFilename is the default database filename
	DefaultDBFilename = "server.db"
)

var (
	// ErrDSNMissing is an error for an incomplete configuration missing the database DSN
	ErrDSNMissing = errors.New("DSN is empty")
	// ErrBaseURLInvalid is an error for an incomplete configuration with an invalid base url
	ErrBaseURLInvalid = errors.New("Invalid BaseURL")
	// ErrPortInvalid is an error for an incomplete configuration with invalid port
	ErrPortInvalid = errors.New("Invalid Port")
	// ErrTokenSecretMissing is an error for a configuration missing the token signing secret
	ErrTokenSecretMissing = errors.New("TokenSecret is empty")
)

func dataHome() string {
	if env := os.Getenv("XDG_DATA_HOME"); env != "" {
		return env
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share")
}

// DefaultDSN returns the default path to the SQLite database file
func DefaultDSN() string {
	return filepath.Join(dataHome(), DefaultDataDir, DefaultDBFilename)
}

func readBoolEnv(name string) bool {
	return os.Getenv(name) == "true"
}

// Config is an application configuration
type Config struct {
	AppEnv              string
	BaseURL             string
	DisableRegistration bool
	Port                string
	DSN                 string
	TokenSecret         string
	RedisAddr           string
	S3Bucket            string
	S3Region            string
	LogLevel            string
}

// Params are the configuration parameters for creating a new Config.
// Empty fields fall back to environment variables, then to the config
// file named by ConfigFile, then to defaults.
type Params struct {
	AppEnv              string
	Port                string
	BaseURL             string
	DSN                 string
	TokenSecret         string
	RedisAddr           string
	S3Bucket            string
	S3Region            string
	DisableRegistration bool
	LogLevel            string
	ConfigFile          string
}

// fileConfig is the YAML shape of the optional config file
type fileConfig struct {
	AppEnv              string `yaml:"appEnv"`
	Port                string `yaml:"port"`
	BaseURL             string `yaml:"baseUrl"`
	DSN                 string `yaml:"dsn"`
	TokenSecret         string `yaml:"tokenSecret"`
	RedisAddr           string `yaml:"redisAddr"`
	S3Bucket            string `yaml:"s3Bucket"`
	S3Region            string `yaml:"s3Region"`
	DisableRegistration bool   `yaml:"disableRegistration"`
	LogLevel            string `yaml:"logLevel"`
}

func readFileConfig(path string) (fileConfig, error) {
	var ret fileConfig

	b, err := os.ReadFile(path)
	if err != nil {
		return ret, errors.Wrap(err, "reading config file")
	}

	if err := yaml.Unmarshal(b, &ret); err != nil {
		return ret, errors.Wrap(err, "unmarshalling config")
	}

	return ret, nil
}

// resolve returns value if non-empty, otherwise env var, otherwise the
// config file value, otherwise default
func resolve(value, envKey, fileVal, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	if fileVal != "" {
		return fileVal
	}
	return defaultVal
}

// New constructs and returns a new validated config
func New(p Params) (Config, error) {
	var fc fileConfig
	if p.ConfigFile != "" {
		var err error
		fc, err = readFileConfig(p.ConfigFile)
		if err != nil {
			return Config{}, err
		}
	}

	c := Config{
		AppEnv:              resolve(p.AppEnv, "APP_ENV", fc.AppEnv, AppEnvProduction),
		Port:                resolve(p.Port, "PORT", fc.Port, "3001"),
		BaseURL:             resolve(p.BaseURL, "BaseURL", fc.BaseURL, "http://localhost:3001"),
		DSN:                 resolve(p.DSN, "DSN", fc.DSN, DefaultDSN()),
		TokenSecret:         resolve(p.TokenSecret, "TokenSecret", fc.TokenSecret, ""),
		RedisAddr:           resolve(p.RedisAddr, "RedisAddr", fc.RedisAddr, ""),
		S3Bucket:            resolve(p.S3Bucket, "S3Bucket", fc.S3Bucket, ""),
		S3Region:            resolve(p.S3Region, "S3Region", fc.S3Region, ""),
		DisableRegistration: p.DisableRegistration || readBoolEnv("DisableRegistration") || fc.DisableRegistration,
		LogLevel:            resolve(p.LogLevel, "LOG_LEVEL", fc.LogLevel, "info"),
	}

	if err := validate(c); err != nil {
		return Config{}, err
	}

	return c, nil
}

// IsProd checks if the app environment is configured to be production.
func (c Config) IsProd() bool {
	return c.AppEnv == AppEnvProduction
}

func validate(c Config) error {
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return errors.Wrapf(ErrBaseURLInvalid, "'%s'", c.BaseURL)
	}
	if c.Port == "" {
		return ErrPortInvalid
	}
	if c.DSN == "" {
		return ErrDSNMissing
	}

	return nil
}

// ValidateServing checks the parts of the configuration that only the HTTP
// server needs. Administrative commands that never issue tokens can run
// without a TokenSecret, so New does not require it.
func (c Config) ValidateServing() error {
	if c.TokenSecret == "" {
		return ErrTokenSecretMissing
	}

	return nil
}
