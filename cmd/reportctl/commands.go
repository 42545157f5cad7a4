package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/AngelCh415/campaign-analyzer/internal/catalog"
	"github.com/AngelCh415/campaign-analyzer/internal/classify"
	"github.com/AngelCh415/campaign-analyzer/internal/csvtable"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/repair"
)

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Offline tools for campaign performance reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	root.SetOut(out)
	root.SetErr(errOut)

	logger := func() *slog.Logger {
		lvl := slog.LevelWarn
		if verbose {
			lvl = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: lvl}))
	}

	root.AddCommand(
		newParseCmd(),
		newMapCmd(),
		newTablesCmd(),
		newCatalogCmd(),
		newClassifyCmd(logger),
		newRepairCmd(),
	)
	return root
}

func newParseCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <file.csv>",
		Short: "Parse a CSV export the way uploads are parsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			t, err := csvtable.ParseReader(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "headers: %s\nrows: %s\n", strings.Join(t.Headers, " | "), humanize.Comma(int64(len(t.Rows))))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print headers and rows as JSON")
	return cmd
}

func newMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "map <label>...",
		Short: "Normalize tactic labels and resolve their product",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tTACTIC\tPRODUCT\tSUB-PRODUCTS")
			for _, label := range args {
				tactic := catalog.Normalize(label)
				product, subs := "-", "-"
				if m, ok := cat.Categories.MapToProduct(tactic); ok {
					product = m.Product
					if len(m.SubProducts) > 0 {
						subs = strings.Join(m.SubProducts, ",")
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, tactic, product, subs)
			}
			return tw.Flush()
		},
	}
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <tactic>",
		Short: "List the report tables expected for a tactic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			for i, t := range cat.Tables.For(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, t)
			}
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	var tactics bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List known products, or the tactics that have expected tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			names := cat.Categories.Products()
			if tactics {
				names = cat.Tables.Tactics()
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tactics, "tactics", false, "list table catalog tactics instead of products")
	return cmd
}

type tableList struct{ tables []models.ParsedTable }

func (l *tableList) Put(t models.ParsedTable) { l.tables = append(l.tables, t) }

func newClassifyCmd(logger func() *slog.Logger) *cobra.Command {
	var tactics []string
	cmd := &cobra.Command{
		Use:   "classify --tactic <name> <file>...",
		Short: "Route CSV files to (tactic, table) slots by file name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			srcs := make([]classify.Source, 0, len(args))
			for _, path := range args {
				path := path
				srcs = append(srcs, classify.Source{
					Name: filepath.Base(path),
					Open: func() (io.ReadCloser, error) { return os.Open(path) },
				})
			}
			uploads := classify.ReadUploads(cmd.Context(), srcs, 4)

			normalized := make([]string, 0, len(tactics))
			for _, t := range tactics {
				normalized = append(normalized, catalog.Normalize(strings.TrimSpace(t)))
			}
			groups := classify.BuildGroups(normalized, cat.Categories)
			sum := classify.New(groups, cat.Tables, logger()).Run(uploads, &tableList{})

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tSIZE\tTACTIC\tTABLE\tRESULT")
			for _, o := range sum.Outcomes {
				result := "ok"
				if !o.Assigned() {
					result = string(o.Reason)
					if o.Hint != "" {
						result += " (closest: " + o.Hint + ")"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.File, humanize.Bytes(uint64(o.Size)), dash(o.Tactic), dash(o.Table), result)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nprocessed %d, errors %d, skipped %d\n", sum.Processed, sum.Errors, sum.Skipped)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tactics, "tactic", "t", nil, "detected tactic (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("tactic")
	return cmd
}

func newRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair [file|-]",
		Short: "Recover an analysis from a raw model response",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			raw, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			res := repair.Analysis(string(raw))
			fmt.Fprintf(cmd.ErrOrStderr(), "stage: %s\n", res.Stage)
			return writeJSON(cmd.OutOrStdout(), res.Analysis)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
