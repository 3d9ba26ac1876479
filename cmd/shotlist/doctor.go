package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check ffmpeg, models and credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		checks := pipeline.Diagnose(cfg)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, c := range checks {
			status := "ok"
			switch {
			case !c.OK && c.Required:
				status = "FAIL"
			case !c.OK:
				status = "warn"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", status, c.Name, c.Detail)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if !pipeline.Healthy(checks) {
			return errors.New("environment is not ready")
		}
		return nil
	},
}
