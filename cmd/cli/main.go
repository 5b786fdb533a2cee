package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"trialtab/adapters/docstore"
	"trialtab/adapters/export"
	"trialtab/adapters/stats"
	"trialtab/internal"
	"trialtab/internal/extract"
	"trialtab/internal/presets"
	"trialtab/internal/testkit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "trialtab-cli",
		Short:         "Extract flat tables from clinical trial study documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level (ERROR, WARN, INFO, DEBUG, TRACE)")

	logger := func() *internal.Logger {
		return internal.NewLogger(internal.ParseLogLevel(logLevel))
	}

	rootCmd.AddCommand(
		newExtractCmd(logger),
		newPresetsCmd(),
		newInspectCmd(),
		newResolveCmd(),
		newTTestCmd(),
		newDescribeCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}

func newExtractCmd(logger func() *internal.Logger) *cobra.Command {
	var specFile, presetName, format, out, sheet string
	var padEmpty bool

	cmd := &cobra.Command{
		Use:   "extract <study.json>",
		Short: "Assemble a table from a study document",
		Long: `Assemble a table from a study document using a named preset or a spec file.

A spec file is a JSON array of column definitions:
  [{"name": "Measure", "path": "protocolSection.outcomesModule.primaryOutcomes[*].measure", "default": "N/A"}]

Example: trialtab-cli extract NCT01000001.json --preset serious-events --format csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (specFile == "") == (presetName == "") {
				return fmt.Errorf("exactly one of --spec or --preset is required")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			spec, err := loadSpec(specFile, presetName)
			if err != nil {
				return err
			}
			if padEmpty {
				spec = spec.WithEmptyScopes(extract.EmptyScopePad)
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			table, diag := extract.AssembleWithDiagnostics(doc.Root, spec)
			log := logger()
			for _, w := range diag.Coercions {
				log.Warn("row %d column %q: %s", w.Row, w.Column, w.Reason)
			}
			log.Info("%s: %d rows", doc.ID, table.Len())

			w := cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			} else if f == export.FormatXLSX {
				return fmt.Errorf("--out is required for xlsx output")
			}
			return writeTable(w, f, table, sheet)
		},
	}

	cmd.Flags().StringVar(&specFile, "spec", "", "JSON file of column definitions")
	cmd.Flags().StringVar(&presetName, "preset", "", "Named preset (see presets)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVar(&sheet, "sheet", "Sheet1", "Sheet name for xlsx output")
	cmd.Flags().BoolVar(&padEmpty, "pad-empty", false, "Emit one row of defaults for empty sequences")

	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the named table presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, p := range presets.All() {
				fmt.Fprintf(w, "%-26s %s\n", p.Name, p.Description)
				fmt.Fprintf(w, "%-26s columns: %s\n", "", strings.Join(p.Spec.Columns(), ", "))
			}
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <study.json>",
		Short: "Summarize the top-level keys of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			keys, err := docstore.Inspect(raw)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, k := range keys {
				switch {
				case len(k.Children) > 0:
					fmt.Fprintf(w, "%s (%s): %s\n", k.Key, k.Kind, strings.Join(k.Children, ", "))
				case k.Kind == "array":
					fmt.Fprintf(w, "%s (array of %d)\n", k.Key, k.Length)
				default:
					fmt.Fprintf(w, "%s (%s): %s\n", k.Key, k.Kind, k.Preview)
				}
			}
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <study.json> <path>",
		Short: "Print every value a path reaches",
		Long: `Print every branch a path reaches, one JSON line each, with the
wildcard indices crossed on the way.

Example: trialtab-cli resolve NCT01000001.json 'resultsSection.adverseEventsModule.seriousEvents[*].stats[*].numAffected'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := extract.ParsePath(args[1])
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, b := range extract.Resolve(doc.Root, path) {
				line := map[string]any{"indices": b.Indices, "present": b.Present}
				if b.Present {
					line["value"] = b.Value
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newTTestCmd() *cobra.Command {
	var presetName, value, group, a, b string
	var welch bool

	cmd := &cobra.Command{
		Use:   "ttest <study.json>",
		Short: "Two-sample t-test of a numeric column between two groups",
		Long: `Two-sample t-test of a numeric column between two groups of a preset table.
Variances are pooled unless --welch is given.

Example: trialtab-cli ttest NCT01000001.json --preset other-events --value Affected --group "Group ID" --a EG000 --b EG001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := presetTable(args[0], presetName)
			if err != nil {
				return err
			}
			res, err := stats.GroupTTest(table, value, group, a, b, welch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: mean %.4g (n=%d)\n%s: mean %.4g (n=%d)\n%s t = %.4f, df = %.2f, p = %.4g\n",
				a, res.MeanA, res.NA, b, res.MeanB, res.NB, res.Method, res.T, res.DF, res.P)
			return nil
		},
	}

	cmd.Flags().StringVar(&presetName, "preset", "", "Named preset")
	cmd.Flags().StringVar(&value, "value", "", "Numeric column")
	cmd.Flags().StringVar(&group, "group", "", "Grouping column")
	cmd.Flags().StringVar(&a, "a", "", "First group label")
	cmd.Flags().StringVar(&b, "b", "", "Second group label")
	cmd.Flags().BoolVar(&welch, "welch", false, "Use Welch's unequal-variance test")
	for _, name := range []string{"preset", "value", "group", "a", "b"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var presetName, column string

	cmd := &cobra.Command{
		Use:   "describe <study.json>",
		Short: "Summary statistics of a numeric column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := presetTable(args[0], presetName)
			if err != nil {
				return err
			}
			s, err := stats.DescribeColumn(table, column)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}

	cmd.Flags().StringVar(&presetName, "preset", "", "Named preset")
	cmd.Flags().StringVar(&column, "column", "", "Numeric column")
	_ = cmd.MarkFlagRequired("preset")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	config := testkit.DefaultStudyConfig()
	var count int

	cmd := &cobra.Command{
		Use:   "generate <dir>",
		Short: "Write synthetic study documents for demos and load tests",
		Long: `Write synthetic study documents named NCT9xxxxxxx.json into dir.

Example: trialtab-cli generate ./studies --count 20 --arms 3 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive")
			}
			if err := os.MkdirAll(args[0], 0o755); err != nil {
				return err
			}
			gen := testkit.NewStudyGenerator(config)
			for i := 0; i < count; i++ {
				id := fmt.Sprintf("NCT9%07d", i+1)
				data, err := gen.GenerateJSON(id)
				if err != nil {
					return err
				}
				if err := os.WriteFile(filepath.Join(args[0], id+".json"), data, 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d studies to %s\n", count, args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "Number of studies")
	cmd.Flags().IntVar(&config.ArmCount, "arms", config.ArmCount, "Arms per study")
	cmd.Flags().IntVar(&config.SubjectsPerArm, "subjects", config.SubjectsPerArm, "Subjects per arm")
	cmd.Flags().IntVar(&config.EventTerms, "event-terms", config.EventTerms, "Adverse event terms per study")
	cmd.Flags().IntVar(&config.LocationCount, "locations", config.LocationCount, "Sites per study")
	cmd.Flags().Int64Var(&config.Seed, "seed", config.Seed, "Random seed")
	return cmd
}

func readDocument(path string) (*docstore.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return docstore.Decode(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), raw)
}

func loadSpec(specFile, presetName string) (*extract.Spec, error) {
	if presetName != "" {
		p, ok := presets.Lookup(presetName)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q, run presets to list them", presetName)
		}
		return p.Spec, nil
	}
	data, err := os.ReadFile(specFile)
	if err != nil {
		return nil, err
	}
	var defs []extract.Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", specFile, err)
	}
	return extract.Compile(defs...)
}

func presetTable(path, presetName string) (*extract.Table, error) {
	spec, err := loadSpec("", presetName)
	if err != nil {
		return nil, err
	}
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return extract.Assemble(doc.Root, spec), nil
}

func writeTable(w io.Writer, f export.Format, table *extract.Table, sheet string) error {
	switch f {
	case export.FormatCSV:
		return export.WriteCSV(w, table)
	case export.FormatXLSX:
		return export.WriteXLSX(w, table, sheet)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(table)
}
