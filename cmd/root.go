/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/config"
)

var version = "0.3.0"

var (
	cfgFile string
	v       = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "doctran",
	Short: "Segment-wise Markdown document translator",
	Long: `A CLI application that translates Markdown documents segment by segment.

Every segment is validated (line count, heading structure, optionally the
output language) and retried with the failure reason until it passes or the
attempts run out. The output always has exactly as many lines as the input.

Supported services: Google Translate, Ollama (LLM), OpenRouter (LLM)

Settings come from defaults, an optional --config file, DOCTRAN_* environment
variables and flags, in increasing order of precedence.

Use "doctran translate --help" for translation options.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, on top of the defaults,
// environment and bound flags.
func loadConfig() (*config.Config, error) {
	return config.Load(v, cfgFile)
}

// bindFlag ties a viper key to a command-line flag so the flag, when set,
// wins over the file and environment.
func bindFlag(key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}
	if err := v.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json")); err != nil {
		panic(err)
	}
}
