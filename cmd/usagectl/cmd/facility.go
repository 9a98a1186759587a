package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/utilization"
)

// facilityFile is the YAML document read by "facility import".
type facilityFile struct {
	Facilities []facilityEntry `yaml:"facilities"`
}

type facilityEntry struct {
	ID            int64          `yaml:"id"`
	Name          string         `yaml:"name"`
	Status        string         `yaml:"status"`
	BuiltCapacity map[string]int `yaml:"builtCapacity"`
	Pricing       []struct {
		CapacityType string `yaml:"capacityType"`
		Usage        string `yaml:"usage"`
	} `yaml:"pricing"`
}

func (fe facilityEntry) toFacility() (facility.Facility, error) {
	status, err := facility.ParseStatus(fe.Status)
	if err != nil {
		return facility.Facility{}, err
	}
	f := facility.Facility{
		ID:            fe.ID,
		Name:          fe.Name,
		Status:        status,
		BuiltCapacity: make(map[utilization.CapacityType]int, len(fe.BuiltCapacity)),
	}
	for name, built := range fe.BuiltCapacity {
		ct, err := utilization.ParseCapacityType(name)
		if err != nil {
			return facility.Facility{}, err
		}
		f.BuiltCapacity[ct] = built
	}
	for _, p := range fe.Pricing {
		ct, err := utilization.ParseCapacityType(p.CapacityType)
		if err != nil {
			return facility.Facility{}, err
		}
		u, err := utilization.ParseUsage(p.Usage)
		if err != nil {
			return facility.Facility{}, err
		}
		f.Pricing = append(f.Pricing, facility.Pricing{CapacityType: ct, Usage: u})
	}
	return f, nil
}

// readFacilityFile parses and validates every entry of a facility file.
func readFacilityFile(path string) ([]facility.Facility, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file facilityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	facilities := make([]facility.Facility, 0, len(file.Facilities))
	for i, entry := range file.Facilities {
		f, err := entry.toFacility()
		if err != nil {
			return nil, fmt.Errorf("facility #%d (id %d): %w", i+1, entry.ID, err)
		}
		facilities = append(facilities, f)
	}
	return facilities, nil
}

func newFacilityCmd(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "facility",
		Short: "Maintain facility metadata and status history",
	}
	c.AddCommand(newFacilityImportCmd(e), newFacilityStatusCmd(e))
	return c
}

func newFacilityImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or replace facilities from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			facilities, err := readFacilityFile(args[0])
			if err != nil {
				return err
			}
			for _, f := range facilities {
				if err := e.services.Facilities.SaveFacility(cmd.Context(), f); err != nil {
					return err
				}
			}
			log.Infof("imported %d facilities", len(facilities))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d facilities\n", len(facilities))
			return nil
		},
	}
}

func newFacilityStatusCmd(e *env) *cobra.Command {
	var at string

	c := &cobra.Command{
		Use:   "status <facility-id> <status>",
		Short: "Record a status change of a facility",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid facility id %q", args[0])
			}
			status, err := facility.ParseStatus(args[1])
			if err != nil {
				return err
			}
			start := time.Now()
			if at != "" {
				if start, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at %q, use RFC3339", at)
				}
			}
			return e.services.Facilities.RecordStatus(cmd.Context(), id, facility.StatusChange{Status: status, Start: start})
		},
	}
	c.Flags().StringVar(&at, "at", "", "when the status took effect (RFC3339), defaults to now")
	return c
}
