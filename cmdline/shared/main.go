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

package shared

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pkgdiag/cudadoctor/config"
)

var ArgConfig string
var CurrentConfig *config.Config
var argVersion bool
var argLogLevel string

var RootCmd = &cobra.Command{
	Use:              "cudadoctor",
	Short:            "Diagnose CUDA APT repository signing problems",
	PersistentPreRun: setup,
	RunE:             bailUnlessVersion,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ArgConfig, "config", "c", "", "Configuration file")
	RootCmd.PersistentFlags().BoolVar(&argVersion, "version", false, "Show version and exit")
	RootCmd.PersistentFlags().StringVar(&argLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func setup(cmd *cobra.Command, args []string) {
	log.Logger = log.Logger.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
	if level, err := zerolog.ParseLevel(argLogLevel); err == nil {
		log.Logger = log.Logger.Level(level)
	}
	if argVersion {
		fmt.Printf("cudadoctor version %s\n", config.Version)
		os.Exit(0)
	}
}

func bailUnlessVersion(cmd *cobra.Command, args []string) error {
	if !argVersion {
		return errors.New("expected a command")
	}
	return nil
}

// InitConfig loads the configured or default config file. A missing file is
// not an error: the built-in defaults describe the stock NVIDIA layout.
func InitConfig() (*config.Config, error) {
	if CurrentConfig != nil {
		return CurrentConfig, nil
	}
	path := ArgConfig
	usedDefault := false
	if path == "" {
		path = config.DefaultConfig()
		usedDefault = true
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && usedDefault {
			cfg = config.New()
		} else {
			return nil, err
		}
	}
	CurrentConfig = cfg
	return cfg, nil
}

func Main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
