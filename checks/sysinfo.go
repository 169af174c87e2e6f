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
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pkgdiag/cudadoctor/lib/checkup"
)

// systemInfo is a straight pass-through display with no judgment; it gives
// the reader the context needed to interpret the checks above it.
func (e *Env) systemInfo(ctx context.Context) checkup.Result {
	res := checkup.Infof("host details")
	data, err := os.ReadFile(e.Config.OSReleasePath)
	if err != nil {
		res = res.WithDetail(fmt.Sprintf("%s unavailable: %v", e.Config.OSReleasePath, err))
	} else {
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			res = res.WithDetail(line)
		}
	}
	return res.WithDetail(
		"architecture: "+runtime.GOARCH,
		"time: "+e.now().UTC().Format(time.RFC1123))
}
