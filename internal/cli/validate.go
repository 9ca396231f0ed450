package cli

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dmtools/sqlog2db/pkg/config"
)

// newValidateCmd creates the validate command, which loads a configuration
// file and reports whether it is usable.
func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			printSuccess("Configuration is valid: %s", configPath)
			printKeyValue("input", cfg.Sqllog.Directory)
			printKeyValue("batch size", humanize.Comma(int64(cfg.Sqllog.BatchSize)))
			printKeyValue("log level", cfg.Logging.Level)
			printKeyValue("exporters", strings.Join(cfg.EnabledExporters(), ", "))
			printKeyValue("error file", cfg.Error.File)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "configuration file to validate")

	return cmd
}
