package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"facility-usage-backend/internal/utilization"
)

func newLatestCmd(e *env) *cobra.Command {
	var (
		facilityID     int64
		samplesFile    string
		facilitiesFile string
	)

	c := &cobra.Command{
		Use:   "latest",
		Short: "Print the newest sample of every priced key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id *int64
			if cmd.Flags().Changed("facility") {
				id = &facilityID
			}

			var series utilization.Series
			if samplesFile != "" {
				mem, _, err := offlineSources(samplesFile, facilitiesFile, e.cfg.Ingest.Location)
				if err != nil {
					return err
				}
				series = mem
			} else {
				series = e.services.Utilizations
			}

			samples, err := series.LatestPerKey(cmd.Context(), id)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FACILITY\tCAPACITY_TYPE\tUSAGE\tSPACES_AVAILABLE\tCAPACITY\tOBSERVED_AT")
			for _, s := range samples {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
					s.FacilityID, s.CapacityType, s.Usage, s.SpacesAvailable, s.Capacity,
					s.Timestamp.In(e.cfg.Report.Location).Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	c.Flags().Int64Var(&facilityID, "facility", 0, "only this facility")
	addOfflineFlags(c, &samplesFile, &facilitiesFile)
	return c
}
