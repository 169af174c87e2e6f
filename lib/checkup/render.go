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

package checkup

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var statusColors = map[Status]*color.Color{
	StatusPass: color.New(color.FgGreen, color.Bold),
	StatusFail: color.New(color.FgRed, color.Bold),
	StatusWarn: color.New(color.FgYellow, color.Bold),
	StatusInfo: color.New(color.FgCyan),
}

func renderResult(w io.Writer, res Result) {
	c := statusColors[res.Status]
	if c == nil {
		c = color.New()
	}
	fmt.Fprintf(w, "[%s] %s\n", c.Sprint(res.Status.String()), res.Summary)
	for _, line := range res.Detail {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
