package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Ducpm1301/ga-webcs/internal/session"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Authenticate and cache the session locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginPassword == "" {
			return eris.New("--password is required")
		}

		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Session.Login(cmd.Context(), args[0], loginPassword); err != nil {
			if eris.Is(err, session.ErrInvalidCredentials) {
				return eris.New("invalid credentials")
			}
			return err
		}

		partners, err := env.Store.Partners(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Logged in as %s (%d partners)\n", args[0], len(partners))
		if sel := env.Hub.Selected(); sel != "" {
			for _, p := range partners {
				if p.ID == sel {
					fmt.Printf("Selected partner: %s\n", p.Name)
				}
			}
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	rootCmd.AddCommand(loginCmd)
}
