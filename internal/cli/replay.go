package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kqstats/stats-server-go/internal/feed"
	"github.com/kqstats/stats-server-go/internal/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ReplayReport is the json output of the replay command.
type ReplayReport struct {
	Lines   int         `json:"lines"`
	Events  int         `json:"events"`
	Dropped int         `json:"dropped"`
	Stats   stats.State `json:"stats"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <feed-log>",
		Short: "Replay a recorded cabinet feed and print the final stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			bus := feed.NewBus()
			engine := stats.NewEngine(bus, logger)
			if err := engine.Start(); err != nil {
				return err
			}

			result, err := feed.ReplayFile(cmd.Context(), args[0], bus, logger)
			if err != nil {
				return err
			}
			logger.Debug("replay finished",
				zap.Int("lines", result.Lines),
				zap.Int("events", result.Events),
				zap.Int("dropped", result.Dropped),
			)

			report := ReplayReport{
				Lines:   result.Lines,
				Events:  result.Events,
				Dropped: result.Dropped,
				Stats:   engine.Snapshot(),
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeTable(out, report)
		},
	}
}

func writeTable(out io.Writer, report ReplayReport) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "CHARACTER")
	for _, s := range stats.Statistics {
		fmt.Fprintf(tw, "\t%s", s)
	}
	fmt.Fprintln(tw)
	for _, e := range stats.Entities {
		fmt.Fprint(tw, e.String())
		for _, s := range stats.Statistics {
			fmt.Fprintf(tw, "\t%d", report.Stats[e][s])
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d events replayed, %d dropped\n", report.Events, report.Dropped)
	return err
}
