package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"facility-usage-backend/internal/app"
	"facility-usage-backend/internal/render"
	"facility-usage-backend/internal/report"
	"facility-usage-backend/internal/utilization"
)

const (
	fromFileFlag   = "from-file"
	facilitiesFlag = "facilities"
)

func newReportCmd(e *env) *cobra.Command {
	var (
		from, to       string
		interval       int
		facilities     []int64
		capacityTypes  []string
		usages         []string
		samplesFile    string
		facilitiesFile string
	)

	c := &cobra.Command{
		Use:   "report <name>",
		Short: "Generate a report and write it as CSV to stdout",
		Long: "Generate a report (FacilityUsage or MaxUtilization) for the local dates --from to --to inclusive.\n" +
			"With --from-file the samples are read from a JSON or YAML file and no database is opened.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := utilization.ParseDate(from)
			if err != nil {
				return err
			}
			end := start
			if to != "" {
				if end, err = utilization.ParseDate(to); err != nil {
					return err
				}
			}
			if interval == 0 {
				interval = e.cfg.Report.DefaultIntervalMinutes
			}

			params := report.Params{
				StartDate:       start,
				EndDate:         end,
				IntervalMinutes: interval,
				FacilityIDs:     facilities,
			}
			for _, s := range capacityTypes {
				params.CapacityTypes = append(params.CapacityTypes, utilization.CapacityType(s))
			}
			for _, s := range usages {
				params.Usages = append(params.Usages, utilization.Usage(s))
			}

			registry, err := e.reports(samplesFile, facilitiesFile)
			if err != nil {
				return err
			}

			run, err := registry.Generate(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			log.WithField("run_id", run.ID).Debug("writing report")
			return render.WriteCSV(cmd.OutOrStdout(), run.Table)
		},
	}

	c.Flags().StringVar(&from, "from", "", "first local date of the report (YYYY-MM-DD)")
	c.Flags().StringVar(&to, "to", "", "last local date of the report, defaults to --from")
	c.Flags().IntVar(&interval, "interval", 0, "bucket width in minutes, defaults to report.default_interval_minutes")
	c.Flags().Int64SliceVar(&facilities, "facility", nil, "restrict to these facility ids")
	c.Flags().StringSliceVar(&capacityTypes, "capacity-type", nil, "restrict to these capacity types")
	c.Flags().StringSliceVar(&usages, "usage", nil, "restrict to these usages")
	addOfflineFlags(c, &samplesFile, &facilitiesFile)
	c.MarkFlagRequired("from")
	return c
}

// reports is the database-backed registry, or one over the sample file.
func (e *env) reports(samplesFile, facilitiesFile string) (*report.Registry, error) {
	if samplesFile == "" {
		return e.services.Reports, nil
	}
	series, static, err := offlineSources(samplesFile, facilitiesFile, e.cfg.Ingest.Location)
	if err != nil {
		return nil, err
	}
	return app.NewReports(e.cfg, series, static, static), nil
}

func addOfflineFlags(c *cobra.Command, samplesFile, facilitiesFile *string) {
	c.Flags().StringVar(samplesFile, fromFileFlag, "", "read samples from this JSON or YAML file instead of the database")
	c.Flags().StringVar(facilitiesFile, facilitiesFlag, "", "facility metadata for --from-file, in the \"facility import\" format")
}
