package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lddl/config"
	"github.com/kilianp07/lddl/pkg/export"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration related commands",
}

var configExportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Write the effective configuration as section,key,value rows",
	Args:  cobra.ExactArgs(1),
	RunE:  exportConfig,
}

var configImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Validate a section,key,value file and write it as a JSON config",
	Args:  cobra.ExactArgs(1),
	RunE:  importConfig,
}

var importOut string

func init() {
	configImportCmd.Flags().StringVarP(&importOut, "out", "o", "", "JSON file to write (stdout when empty)")
	configCmd.AddCommand(configExportCmd, configImportCmd)
	rootCmd.AddCommand(configCmd)
}

func exportConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return export.WriteFile(args[0], func(w io.Writer) error {
		return config.WriteCSV(w, *cfg)
	})
}

func importConfig(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, err := config.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	write := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	if importOut == "" {
		return write(cmd.OutOrStdout())
	}
	return export.WriteFile(importOut, write)
}
