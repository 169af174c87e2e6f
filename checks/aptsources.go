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
	"fmt"
	"strings"

	"github.com/pkgdiag/cudadoctor/lib/aptsource"
	"github.com/pkgdiag/cudadoctor/lib/checkup"
)

// aptSources inspects how the CUDA repository is configured: per-file PASS
// when trust is pinned with signed-by, WARN when the entry leans on the
// system-wide trust store, FAIL when nothing CUDA-related is configured.
func (e *Env) aptSources(ctx context.Context) checkup.Result {
	files, err := aptsource.Scan(e.Config.SourcesDir)
	if err != nil {
		files = nil // fall through to the legacy single-file list
	}
	if len(files) > 0 {
		var detail []string
		legacy := 0
		for _, file := range files {
			detail = append(detail, "-- "+file.Path+" --")
			for _, line := range strings.Split(strings.TrimRight(file.Contents, "\n"), "\n") {
				detail = append(detail, "  "+line)
			}
			if file.SignedBy {
				detail = append(detail, "  => PASS: signed-by present (modern method, trust pinned to a keyring)")
			} else {
				legacy++
				detail = append(detail, "  => WARN: no signed-by option (legacy method, system-wide trust)")
			}
		}
		if legacy > 0 {
			return checkup.Warnf("%d of %d CUDA source file(s) use the legacy trust method", legacy, len(files)).
				WithDetail(detail...).
				WithDetail("legacy entries are a likely source of verification mismatches on newer systems")
		}
		return checkup.Passf("%d CUDA source file(s) configured with signed-by", len(files)).WithDetail(detail...)
	}
	lines, err := aptsource.GrepLegacy(e.Config.SourcesFile)
	if err != nil || len(lines) == 0 {
		return checkup.Failf("no CUDA repository configured under %s or %s",
			e.Config.SourcesDir, e.Config.SourcesFile)
	}
	detail := []string{fmt.Sprintf("cuda entries in %s:", e.Config.SourcesFile)}
	signed := false
	for _, line := range lines {
		detail = append(detail, "  "+line)
		if strings.Contains(strings.ToLower(line), "signed-by") {
			signed = true
		}
	}
	if signed {
		return checkup.Passf("CUDA entry in %s uses signed-by", e.Config.SourcesFile).WithDetail(detail...)
	}
	return checkup.Warnf("CUDA entry in %s lacks signed-by (legacy method)", e.Config.SourcesFile).
		WithDetail(detail...)
}
