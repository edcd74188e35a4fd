package main

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crime-map/internal/codes"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Export the crime, weapon and premises code lookups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "yaml" && format != "json" {
			return eris.Errorf("unsupported --format %q (want yaml or json)", format)
		}

		ds, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return writeCodes(cmd.OutOrStdout(), ds.Book, format)
	},
}

type codeTable struct {
	Codes     map[int]string   `json:"codes" yaml:"codes"`
	Conflicts []codes.Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

type codeExport struct {
	Crime    codeTable `json:"crime" yaml:"crime"`
	Weapon   codeTable `json:"weapon" yaml:"weapon"`
	Premises codeTable `json:"premises" yaml:"premises"`
}

func exportTable(t *codes.Table) codeTable {
	return codeTable{Codes: t.Entries(), Conflicts: t.Conflicts}
}

func writeCodes(w io.Writer, book *codes.Book, format string) error {
	out := codeExport{
		Crime:    exportTable(book.Crime),
		Weapon:   exportTable(book.Weapon),
		Premises: exportTable(book.Premises),
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "codes: encode json")
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "codes: encode yaml")
	}
	return eris.Wrap(enc.Close(), "codes: close yaml encoder")
}

func init() {
	codesCmd.Flags().String("format", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(codesCmd)
}
