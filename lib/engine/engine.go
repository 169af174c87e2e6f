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

// Package engine drives an external container engine binary. Image builds
// are delegated entirely to the engine; this package only assembles the
// command line and wires up output.
package engine

import (
	"context"
	"io"
	"os/exec"
	"sort"
)

// BuildOptions describes one image build.
type BuildOptions struct {
	ContextDir string
	Tag        string
	BuildArgs  map[string]string
	Output     io.Writer // receives combined stdout and stderr
}

// Builder builds a container image. Tests substitute a fake so no engine
// binary is needed.
type Builder interface {
	Build(ctx context.Context, opts BuildOptions) error
}

// ExecBuilder shells out to a docker-compatible engine binary.
type ExecBuilder struct {
	Bin string // docker, podman, nerdctl, ...
}

func (b ExecBuilder) Build(ctx context.Context, opts BuildOptions) error {
	cmd := exec.CommandContext(ctx, b.Bin, BuildArgv(opts)...)
	cmd.Stdout = opts.Output
	cmd.Stderr = opts.Output
	return cmd.Run()
}

// Available reports whether the engine binary can be found on PATH.
func (b ExecBuilder) Available() bool {
	_, err := exec.LookPath(b.Bin)
	return err == nil
}

// BuildArgv returns the engine arguments for a build, with build args in
// sorted order so command lines are stable.
func BuildArgv(opts BuildOptions) []string {
	argv := []string{"build", "--tag", opts.Tag}
	names := make([]string, 0, len(opts.BuildArgs))
	for name := range opts.BuildArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		argv = append(argv, "--build-arg", name+"="+opts.BuildArgs[name])
	}
	return append(argv, opts.ContextDir)
}
