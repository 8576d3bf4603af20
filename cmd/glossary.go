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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/store"
)

const defaultGlossaryDB = "./data/doctran.db"

var glossaryDBPath string

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
	Long: `Add, list, import and delete terminology glossary entries.

Glossary entries ensure that specific source terms are always translated
to the same target term. Pass the database to translate with --glossary-db;
terms found in a segment are added to its translation prompt.

The database path comes from --db, else glossary.db_path in the config file
or DOCTRAN_GLOSSARY_DB_PATH, else ` + defaultGlossaryDB + `.`,
}

// withStore opens the glossary database for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, db *store.Store) error) error {
	path := glossaryDBPath
	if !cmd.Flags().Changed("db") {
		if cfg, err := loadConfig(); err == nil && cfg.Glossary.DBPath != "" {
			path = cfg.Glossary.DBPath
		}
	}

	db, err := store.New(path)
	if err != nil {
		return errors.WithHint(errors.Wrap(err, "open glossary"), "check --db or DOCTRAN_GLOSSARY_DB_PATH")
	}
	defer db.Close()

	return fn(cmd.Context(), db)
}

var (
	glossarySource string
	glossaryTarget string
)

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			entries, err := db.ListGlossaryTerms(ctx, glossarySource, glossaryTarget)
			if err != nil {
				return fmt.Errorf("failed to list glossary: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Glossary is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tSOURCE TERM\tTARGET TERM")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s->%s\t%s\t%s\n", e.ID, e.SourceLang, e.TargetLang, e.SourceTerm, e.TargetTerm)
			}
			return w.Flush()
		})
	},
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary entry",
	Long: `Add a glossary entry mapping a source-language term to a target-language term.

Example:
  doctran glossary add "Kyiv" "Київ" --source en --target uk`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePair(); err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			id, err := db.AddGlossaryTerm(ctx, glossarySource, glossaryTarget, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to add glossary entry: %w", err)
			}
			fmt.Printf("Added %s: [%s->%s] %q -> %q\n", id, glossarySource, glossaryTarget, args[0], args[1])
			return nil
		})
	},
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import glossary entries from a CSV file",
	Long: `Import glossary entries from a CSV file with two columns,
source term and target term. A first row "source,target" is skipped.
The import is all or nothing.

Example:
  doctran glossary import terms.csv --source zh --target en`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePair(); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open CSV: %w", err)
		}
		defer f.Close()

		entries, err := readGlossaryCSV(f, glossarySource, glossaryTarget)
		if err != nil {
			return err
		}

		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			n, err := db.ImportGlossary(ctx, entries)
			if err != nil {
				return fmt.Errorf("failed to import glossary: %w", err)
			}
			fmt.Printf("Imported %d entries [%s->%s]\n", n, glossarySource, glossaryTarget)
			return nil
		})
	},
}

var glossaryMatchCmd = &cobra.Command{
	Use:   "match <file>",
	Short: "Show which glossary terms occur in a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePair(); err != nil {
			return err
		}
		text, err := readInput(args[0])
		if err != nil {
			return err
		}

		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			terms, err := db.GetGlossaryTerms(ctx, glossarySource, glossaryTarget)
			if err != nil {
				return fmt.Errorf("failed to load glossary: %w", err)
			}
			matched := store.MatchTerms(terms, text)

			sources := make([]string, 0, len(matched))
			for src := range matched {
				sources = append(sources, src)
			}
			sort.Strings(sources)
			for _, src := range sources {
				fmt.Printf("%s -> %s\n", src, matched[src])
			}
			fmt.Fprintf(os.Stderr, "%d of %d terms found\n", len(matched), len(terms))
			return nil
		})
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary entry by ID",
	Long: `Delete a glossary entry by its ID (shown in "doctran glossary list").

Example:
  doctran glossary delete 0f8fad5b-d9cb-469f-a165-70867728950e`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			found, err := db.DeleteGlossaryTerm(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete glossary entry: %w", err)
			}
			if !found {
				return fmt.Errorf("no glossary entry with ID %s", args[0])
			}
			fmt.Printf("Deleted glossary entry: %s\n", args[0])
			return nil
		})
	},
}

func requirePair() error {
	if glossarySource == "" || glossaryTarget == "" {
		return errors.WithHint(errors.New("a language pair is required"), "pass --source and --target, e.g. --source en --target uk")
	}
	return nil
}

// readGlossaryCSV parses two-column rows into entries for one language pair.
func readGlossaryCSV(r io.Reader, sourceLang, targetLang string) ([]store.GlossaryEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) > 0 && strings.EqualFold(records[0][0], "source") && strings.EqualFold(records[0][1], "target") {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file has no entries")
	}

	entries := make([]store.GlossaryEntry, len(records))
	for i, rec := range records {
		entries[i] = store.GlossaryEntry{
			SourceLang: sourceLang,
			TargetLang: targetLang,
			SourceTerm: rec[0],
			TargetTerm: rec[1],
		}
	}
	return entries, nil
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryCmd.PersistentFlags().StringVar(&glossaryDBPath, "db", defaultGlossaryDB, "Database path")
	glossaryCmd.PersistentFlags().StringVarP(&glossarySource, "source", "s", "", "Source language code (e.g. en)")
	glossaryCmd.PersistentFlags().StringVarP(&glossaryTarget, "target", "t", "", "Target language code (e.g. uk)")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryImportCmd)
	glossaryCmd.AddCommand(glossaryMatchCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
}
