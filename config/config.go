/*
 * Copyright (c) SAS Institute Inc.
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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var Version = "unknown" // set this at link time

// Config holds every path and identifier the diagnostics consult. All
// fields have working defaults so the tool runs with no config file at all;
// a YAML file can override any of them, which is how the tests point the
// checks at fixtures.
type Config struct {
	KeyringPath    string `yaml:"keyring_path"`    // keyring the repository should be pinned to
	ExpectedKeyID  string `yaml:"expected_key_id"` // 16 hex digit key ID the keyring must contain
	RepoURL        string `yaml:"repo_url"`        // distribution/arch specific repository base
	KeyringVersion string `yaml:"keyring_version"` // cuda-keyring package version installed by builds
	SourcesDir     string `yaml:"sources_dir"`     // apt sources fragment directory
	SourcesFile    string `yaml:"sources_file"`    // legacy single-file sources list
	OSReleasePath  string `yaml:"os_release_path"`
	Engine         string `yaml:"engine"` // container engine binary used by the build command
	BuildLogPath   string `yaml:"build_log_path"`

	path string
}

// New returns a Config populated with the stock NVIDIA repository layout.
func New() *Config {
	return &Config{
		KeyringPath:    "/usr/share/keyrings/cuda-archive-keyring.gpg",
		ExpectedKeyID:  "EB693B3035CD5710",
		RepoURL:        "https://developer.download.nvidia.com/compute/cuda/repos/ubuntu2404/x86_64",
		KeyringVersion: "1.1-1",
		SourcesDir:     "/etc/apt/sources.list.d",
		SourcesFile:    "/etc/apt/sources.list",
		OSReleasePath:  "/etc/os-release",
		Engine:         "docker",
		BuildLogPath:   "/tmp/cuda-keyring-build.log",
	}
}

// ReadFile loads a YAML config, filling anything the file leaves out with
// the defaults from New.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := New()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	config.path = path
	return config, nil
}

func (config *Config) validate() error {
	if config.KeyringPath == "" {
		return fmt.Errorf("keyring_path must not be empty")
	}
	if config.ExpectedKeyID == "" {
		return fmt.Errorf("expected_key_id must not be empty")
	}
	if config.RepoURL == "" {
		return fmt.Errorf("repo_url must not be empty")
	}
	return nil
}

// Path returns the file this config was read from, or "" for the built-in
// defaults.
func (config *Config) Path() string {
	return config.path
}
