package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
	"github.com/dmtools/sqlog2db/pkg/verify"
)

// defaultVerifyFile is the JSONL export checked when no path is given. It
// matches the default JSONL exporter target.
const defaultVerifyFile = "export/sqllog2db.jsonl"

// newVerifyCmd creates the verify command, which validates a JSONL export
// line by line and reports totals, per-line samples and the validity rate.
func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [file] [samples]",
		Short: "Validate a JSONL export line by line",
		Long: `Validate that every line of a JSON Lines file parses as JSON.

The first lines are echoed in detail: valid lines pretty-printed, invalid
lines with their parse failure. Malformed lines are counted and reported but
never abort the pass; the command fails only when the file itself cannot be
read.

Examples:
  sqlog2db verify                           # check export/sqllog2db.jsonl, show 3 lines
  sqlog2db verify export/logs.jsonl         # custom file
  sqlog2db verify export/logs.jsonl 10      # show the first 10 lines`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultVerifyFile
			samples := verify.DefaultSampleCount
			if len(args) > 0 {
				path = args[0]
			}
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 0 {
					return apperrors.New(apperrors.ErrCodeInvalidInput,
						"sample count must be a non-negative integer, got %q", args[1])
				}
				samples = n
			}

			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			res, err := verify.File(path, verify.Options{
				SampleCount: samples,
				Out:         cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			prog.done(fmt.Sprintf("Verified %s lines", humanize.Comma(res.Total)))
			return nil
		},
	}

	return cmd
}
