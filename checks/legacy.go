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

package checks

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkgdiag/cudadoctor/lib/checkup"
)

// trailingContext is how many lines after a cuda/nvidia match are kept, so
// key fingerprints and uids printed below the match stay visible.
const trailingContext = 5

// LegacyKeyLister enumerates keys in the deprecated system-wide trust
// store. Nil means the legacy tool is not installed.
type LegacyKeyLister interface {
	List(ctx context.Context) (string, error)
}

// AptKeyLister shells out to apt-key, the deprecated key-management tool.
type AptKeyLister struct{}

func (AptKeyLister) List(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "apt-key", "list").CombinedOutput()
	return string(out), err
}

// AptKeyAvailable reports whether apt-key exists on PATH.
func AptKeyAvailable() bool {
	_, err := exec.LookPath("apt-key")
	return err == nil
}

// legacyKeys lists cuda/nvidia keys held in the system-wide trust store.
// These keys are informational: their presence can mask or conflict with
// keyring-pinned trust.
func (e *Env) legacyKeys(ctx context.Context) checkup.Result {
	if e.LegacyKeys == nil {
		return checkup.Warnf("apt-key not installed, skipping legacy key check (expected on modern systems)")
	}
	out, err := e.LegacyKeys.List(ctx)
	if err != nil {
		return checkup.Warnf("apt-key list failed: %v", err)
	}
	matches := grepContext(out, trailingContext)
	if len(matches) == 0 {
		return checkup.Infof("no cuda/nvidia keys in the legacy trust store")
	}
	return checkup.Infof("cuda/nvidia keys found in the legacy trust store").WithDetail(matches...)
}

// grepContext returns every line mentioning cuda or nvidia together with
// the following `after` lines, case-insensitively, overlaps merged.
func grepContext(text string, after int) []string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var out []string
	until := -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "cuda") || strings.Contains(lower, "nvidia") {
			until = i + after
		}
		if i <= until {
			out = append(out, line)
		}
	}
	return out
}
