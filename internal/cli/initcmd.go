package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmtools/sqlog2db/pkg/config"
)

// defaultConfigFile is where commands look for configuration by default.
const defaultConfigFile = "sqlog2db.toml"

// newInitCmd creates the init command, which writes a commented default
// configuration file.
func newInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Long: `Write a commented default configuration file.

The generated file enables only the JSONL exporter; edit it to enable the
CSV, SQLite, MongoDB or Redis sinks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(output, force); err != nil {
				return err
			}
			printSuccess("Wrote %s", output)
			printDetail("edit it and start an export with: sqlog2db run -c %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", defaultConfigFile, "output path for the configuration file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
