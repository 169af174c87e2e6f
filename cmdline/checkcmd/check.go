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

package checkcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgdiag/cudadoctor/checks"
	"github.com/pkgdiag/cudadoctor/cmdline/shared"
	"github.com/pkgdiag/cudadoctor/lib/checkup"
	"github.com/pkgdiag/cudadoctor/lib/keyring"
	"github.com/pkgdiag/cudadoctor/lib/repofetch"
)

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the CUDA keyring diagnostic checklist",
	Long: `Runs eight independent diagnostics against the local keyring, APT
configuration, and the remote repository. Every check runs regardless of
earlier outcomes; read the marked lines top to bottom.`,
	RunE: checkCmd,
}

var argOffline bool

func init() {
	shared.RootCmd.AddCommand(CheckCmd)
	CheckCmd.Flags().BoolVar(&argOffline, "offline", false, "Skip checks that need network access")
}

func checkCmd(cmd *cobra.Command, args []string) error {
	cfg, err := shared.InitConfig()
	if err != nil {
		return err
	}
	env := &checks.Env{
		Config:  cfg,
		Keyring: keyring.FileLister{},
	}
	if !argOffline {
		env.Fetcher = repofetch.NewHTTPFetcher()
	}
	if checks.AptKeyAvailable() {
		env.LegacyKeys = checks.AptKeyLister{}
	}
	header := "CUDA keyring diagnostics"
	if cfg.Path() != "" {
		header += fmt.Sprintf(" (config: %s)", cfg.Path())
	}
	runner := &checkup.Runner{
		Out:    cmd.OutOrStdout(),
		Checks: checks.All(env),
		Header: header,
		Footer: checks.Summary,
	}
	runner.Run(cmd.Context())
	return nil
}
