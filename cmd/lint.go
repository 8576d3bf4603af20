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

	"github.com/valpere/doctran/internal/lint"
)

var lintFix bool

var lintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Check a Markdown file for formatting issues",
	Long: `Check a Markdown file for formatting issues.

Rules:
  trailing-space   trailing whitespace (two spaces, a hard break, are kept)
  cjk-spacing      missing space between CJK and Latin text
  heading-space    "#" directly followed by text, e.g. "#Title"
  unclosed-fence   code fence that is never closed
  heading-jump     heading level skipping a level

With --fix the first two are corrected in place; the rest are reported.
"#include" and "#42" are not headings to markdown, so heading-space is
never rewritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		text, err := readInput(path)
		if err != nil {
			return err
		}

		report := lint.Linter{ReportOnly: !lintFix}.Lint(text)

		if lintFix && report.Fixed > 0 {
			if err := os.WriteFile(path, []byte(report.FixedText), 0644); err != nil {
				return fmt.Errorf("failed to write fixed file: %w", err)
			}
			fmt.Printf("Fixed %d issues in %s\n", report.Fixed, path)
		}

		if len(report.Messages) == 0 {
			fmt.Printf("%s: no issues\n", path)
			return nil
		}
		fmt.Println(report.FormattedMessage)
		return errors.Newf("%s: %d issues", path, len(report.Messages))
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().BoolVar(&lintFix, "fix", false, "Fix what can be fixed and rewrite the file")
}
