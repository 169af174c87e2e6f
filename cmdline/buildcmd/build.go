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

package buildcmd

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pkgdiag/cudadoctor/cmdline/shared"
	"github.com/pkgdiag/cudadoctor/config"
	"github.com/pkgdiag/cudadoctor/lib/engine"
)

//go:embed Dockerfile
var dockerfile []byte

var BuildCmd = &cobra.Command{
	Use:   "build <base-image> [keyring-version]",
	Short: "Build a test image that installs cuda-keyring on a base image",
	Long: `Builds a container image that layers the cuda-keyring package and this
tool onto the given base image, then runs apt-get update against the CUDA
repository. A failed build reproduces the signature verification problem
this tool diagnoses, so the build's failure is reported, not treated as an
error of this command.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: buildCmd,
}

var (
	argTag    string
	argStrict bool
)

func init() {
	shared.RootCmd.AddCommand(BuildCmd)
	BuildCmd.Flags().StringVar(&argTag, "tag", "cuda-keyring-test", "Tag for the built image")
	BuildCmd.Flags().BoolVar(&argStrict, "strict", false, "Exit nonzero when the image build fails")
}

func buildCmd(cmd *cobra.Command, args []string) error {
	cfg, err := shared.InitConfig()
	if err != nil {
		return err
	}
	base := args[0]
	if base == "" {
		return errors.New("base image must not be empty")
	}
	version := cfg.KeyringVersion
	if len(args) == 2 && args[1] != "" {
		version = args[1]
	}
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating own binary: %w", err)
	}
	builder := engine.ExecBuilder{Bin: cfg.Engine}
	if !builder.Available() {
		return fmt.Errorf("container engine %q not found on PATH", cfg.Engine)
	}
	failed, err := runBuild(cmd.Context(), cmd.OutOrStdout(), cfg, builder, base, version, self)
	if err != nil {
		return err
	}
	if failed && argStrict {
		os.Exit(1)
	}
	return nil
}

// runBuild performs the build and prints the summary. The first return
// value reports whether the image build itself failed, which is an expected
// outcome, not an error of the driver.
func runBuild(ctx context.Context, out io.Writer, cfg *config.Config, builder engine.Builder, base, version, selfPath string) (failed bool, err error) {
	logFile, err := os.Create(cfg.BuildLogPath)
	if err != nil {
		return false, fmt.Errorf("creating build log: %w", err)
	}
	defer logFile.Close()
	tee := io.MultiWriter(out, logFile)

	contextDir, err := writeBuildContext(selfPath)
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(contextDir)

	log.Info().Str("base", base).Str("keyring_version", version).Str("tag", argTag).
		Msg("building test image")
	buildErr := builder.Build(ctx, engine.BuildOptions{
		ContextDir: contextDir,
		Tag:        argTag,
		BuildArgs: map[string]string{
			"BASE_IMAGE":      base,
			"KEYRING_VERSION": version,
			"REPO_URL":        cfg.RepoURL,
		},
		Output: tee,
	})

	fmt.Fprintln(out)
	if buildErr != nil {
		fmt.Fprintln(out, "Status: FAILED")
		fmt.Fprintf(out, "The image build failed; this reproduces the reported apt-get problem.\n")
		fmt.Fprintf(out, "Full build output saved to %s\n", cfg.BuildLogPath)
		fmt.Fprintf(out, "Inspect the failing step there, or run the checklist against a base image:\n")
		fmt.Fprintf(out, "  %s run --rm %s cudadoctor check\n", cfg.Engine, base)
		return true, nil
	}
	fmt.Fprintln(out, "Status: SUCCESS")
	fmt.Fprintf(out, "Build log saved to %s\n", cfg.BuildLogPath)
	fmt.Fprintf(out, "Run the checklist inside the image with:\n")
	fmt.Fprintf(out, "  %s run --rm %s /usr/local/bin/cudadoctor check\n", cfg.Engine, argTag)
	return false, nil
}

// writeBuildContext lays out a scratch build context: the embedded
// Dockerfile plus a copy of this binary, which the image installs at
// /usr/local/bin/cudadoctor so the checklist is available inside.
func writeBuildContext(selfPath string) (string, error) {
	dir, err := os.MkdirTemp("", "cudadoctor-build-")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), dockerfile, 0644); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if err := copyFile(selfPath, filepath.Join(dir, "cudadoctor"), 0755); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("copying %s into build context: %w", selfPath, err)
	}
	return dir, nil
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
