package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Ducpm1301/ga-webcs/internal/dashboard"
)

var (
	statsSite  string
	statsStart string
	statsEnd   string
	statsShift int
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch shift statistics for the selected partner",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsSite == "" || statsStart == "" {
			return eris.New("--site and --start are required")
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
			Site:      statsSite,
			StartDate: statsStart,
			EndDate:   statsEnd,
			Shift:     statsShift,
		})
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		printResult(res)
		return nil
	},
}

func printResult(res *dashboard.Result) {
	fmt.Printf("%s  partner %s  %s", res.SiteName, res.PartnerID, res.Query.StartDate)
	if res.Query.EndDate != "" {
		fmt.Printf(" .. %s", res.Query.EndDate)
	}
	fmt.Println()

	for _, day := range res.Groups.Days {
		fmt.Printf("%s\n", day.Day)
		for _, row := range day.Rows {
			fmt.Printf("  shift %d  %-20s %6.1fh", row.Shift, row.Supervisor, row.Hours)
			if row.Crew > 0 {
				fmt.Printf("  crew %.0f", row.Crew)
			}
			fmt.Println()
		}
	}

	fmt.Printf("total hours %.1f", res.Summary.TotalHours)
	if res.Summary.TotalCrew > 0 {
		fmt.Printf("  total crew %.0f", res.Summary.TotalCrew)
	}
	fmt.Println()
	fmt.Printf("shifts: %d reported, %d expected, %d missing, %d with gaps\n",
		res.Groups.TotalShifts, res.Groups.Expected, res.Groups.MissingShifts, res.Groups.MissingData)
}

func init() {
	statsCmd.Flags().StringVar(&statsSite, "site", "", "site tag (sinter, furnace, casting)")
	statsCmd.Flags().StringVar(&statsStart, "start", "", "start date (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "end date (YYYY-MM-DD), empty for a single day")
	statsCmd.Flags().IntVar(&statsShift, "shift", 0, "restrict to one shift number (0 = all)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print raw JSON")
	rootCmd.AddCommand(statsCmd)
}
