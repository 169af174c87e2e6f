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

// Package aptsource scans APT source configuration for CUDA repository
// entries and classifies how each one establishes trust.
package aptsource

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceFile is one file from the sources fragment directory whose name
// matched the cuda/nvidia filter.
type SourceFile struct {
	Path     string
	Contents string
	SignedBy bool // a signed-by option pins trust to a specific keyring
}

// MatchesName reports whether a file name looks CUDA-related.
func MatchesName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "cuda") || strings.Contains(lower, "nvidia")
}

// Scan reads every CUDA-related file under the sources fragment directory,
// in name order. Unreadable individual files are skipped rather than
// failing the whole scan.
func Scan(dir string) ([]SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []SourceFile
	for _, entry := range entries {
		if entry.IsDir() || !MatchesName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Path:     path,
			Contents: string(data),
			SignedBy: strings.Contains(strings.ToLower(string(data)), "signed-by"),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// GrepLegacy returns the lines of the single-file sources list that mention
// cuda, for systems that never migrated to the fragment directory.
func GrepLegacy(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(strings.ToLower(line), "cuda") {
			matched = append(matched, line)
		}
	}
	return matched, nil
}
