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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/segmenter"
)

var segmentsSource string

var segmentsCmd = &cobra.Command{
	Use:   "segments <file>",
	Short: "Show how a document is split into segments",
	Long: `Show how a document is split into segments.

A segment starts at every level 1-3 heading outside fenced code. With
--source, CANDIDATE tells whether the segment contains text in that
language's alphabet and would be sent to the stages.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args[0])
		if err != nil {
			return err
		}

		var opts []segmenter.Option
		if segmentsSource != "" {
			scripts, err := segmenter.ScriptsFor(segmentsSource)
			if err != nil {
				return err
			}
			opts = append(opts, segmenter.WithScripts(scripts...))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tLINES\tCOUNT\tFENCED CODE\tCANDIDATE\tFIRST LINE")
		for i, seg := range segmenter.New(opts...).Split(text) {
			fmt.Fprintf(w, "%d\t%d-%d\t%d\t%t\t%t\t%s\n",
				i, seg.StartLine, seg.EndLine, seg.Lines(),
				seg.HasFencedCode, seg.IsTransformCandidate, firstLine(seg.Content))
		}
		return w.Flush()
	},
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			s = s[:i]
			break
		}
	}
	if r := []rune(s); len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(segmentsCmd)
	segmentsCmd.Flags().StringVarP(&segmentsSource, "source", "s", "", "Source language code used for the CANDIDATE column")
}
