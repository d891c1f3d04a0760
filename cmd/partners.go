package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var partnersCmd = &cobra.Command{
	Use:   "partners",
	Short: "List cached partners",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		partners, err := env.Store.Partners(cmd.Context())
		if err != nil {
			return err
		}
		if len(partners) == 0 {
			fmt.Println("No partners cached; log in first")
			return nil
		}

		selected := env.Hub.Selected()
		for _, p := range partners {
			marker := " "
			if p.ID == selected {
				marker = "*"
			}
			fmt.Printf("%s %-12s %s\n", marker, p.ID, p.Name)
		}
		return nil
	},
}

var partnersSelectCmd = &cobra.Command{
	Use:   "select <partner-id>",
	Short: "Switch the active partner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		partners, err := env.Store.Partners(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range partners {
			if p.ID == args[0] {
				if err := env.Hub.Select(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Printf("Selected partner: %s\n", p.Name)
				return nil
			}
		}
		return eris.Errorf("unknown partner: %s", args[0])
	},
}

func init() {
	partnersCmd.AddCommand(partnersSelectCmd)
	rootCmd.AddCommand(partnersCmd)
}
