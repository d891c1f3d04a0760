package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Ducpm1301/ga-webcs/internal/dashboard"
)

var (
	exportSite  string
	exportStart string
	exportEnd   string
	exportShift int
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export shift statistics to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportSite == "" || exportStart == "" {
			return eris.New("--site and --start are required")
		}
		if exportOut == "" {
			exportOut = fmt.Sprintf("%s_%s.xlsx", exportSite, exportStart)
		}

		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Session.Resume(cmd.Context()); err != nil {
			return err
		}
		if !env.Session.State().IsAuthenticated {
			return eris.New("not logged in")
		}

		res, err := env.View.Fetch(cmd.Context(), dashboard.Query{
			Site:      exportSite,
			StartDate: exportStart,
			EndDate:   exportEnd,
			Shift:     exportShift,
		})
		if err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", exportOut)
		}
		defer f.Close()

		if err := dashboard.WriteWorkbook(f, res); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d shifts)\n", exportOut, res.Groups.TotalShifts)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSite, "site", "", "site tag (sinter, furnace, casting)")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "end date (YYYY-MM-DD), empty for a single day")
	exportCmd.Flags().IntVar(&exportShift, "shift", 0, "restrict to one shift number (0 = all)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <site>_<start>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
