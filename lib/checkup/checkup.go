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

// Package checkup runs an ordered list of independent diagnostic checks and
// renders their outcomes. Checks are best-effort: a failing, erroring, or
// even panicking check never prevents the ones after it from running.
package checkup

import (
	"context"
	"fmt"
	"io"
)

type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusWarn
	StatusInfo
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusWarn:
		return "WARN"
	case StatusInfo:
		return "INFO"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of a single check: a status, a one-line summary,
// and optional detail lines rendered indented below it.
type Result struct {
	Status  Status
	Summary string
	Detail  []string
}

func Passf(format string, args ...interface{}) Result {
	return Result{Status: StatusPass, Summary: fmt.Sprintf(format, args...)}
}

func Failf(format string, args ...interface{}) Result {
	return Result{Status: StatusFail, Summary: fmt.Sprintf(format, args...)}
}

func Warnf(format string, args ...interface{}) Result {
	return Result{Status: StatusWarn, Summary: fmt.Sprintf(format, args...)}
}

func Infof(format string, args ...interface{}) Result {
	return Result{Status: StatusInfo, Summary: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of the result with extra detail lines appended.
func (r Result) WithDetail(lines ...string) Result {
	r.Detail = append(append([]string(nil), r.Detail...), lines...)
	return r
}

// Check is one named diagnostic step.
type Check struct {
	Name string
	Run  func(ctx context.Context) Result
}

// Runner executes its checks in order, writing each rendered result to Out.
// Every check runs unconditionally; order affects presentation only.
type Runner struct {
	Out    io.Writer
	Checks []Check
	Header string
	Footer string
}

// Run executes all checks and returns their results. It never stops early:
// panics are caught and reported as failures of the offending check.
func (r *Runner) Run(ctx context.Context) []Result {
	if r.Header != "" {
		fmt.Fprintln(r.Out, r.Header)
	}
	results := make([]Result, 0, len(r.Checks))
	for i, check := range r.Checks {
		fmt.Fprintf(r.Out, "\n== [%d/%d] %s ==\n", i+1, len(r.Checks), check.Name)
		res := runOne(ctx, check)
		renderResult(r.Out, res)
		results = append(results, res)
	}
	if r.Footer != "" {
		fmt.Fprintf(r.Out, "\n%s\n", r.Footer)
	}
	return results
}

func runOne(ctx context.Context, check Check) (res Result) {
	defer func() {
		if caught := recover(); caught != nil {
			res = Failf("check %q panicked: %v", check.Name, caught)
		}
	}()
	return check.Run(ctx)
}
