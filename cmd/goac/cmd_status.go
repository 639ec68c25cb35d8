package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"goac/internal/header"
	"goac/internal/peer"
)

var statusFrom string

var (
	styleEncrypt    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleAvailable  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleDiscourage = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleDisable    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleLabel      = lipgloss.NewStyle().Faint(true)
)

var statusCmd = &cobra.Command{
	Use:   "status [addr]",
	Short: "Show the encryption recommendation for a peer",
	Long: `Derives the Autocrypt ui-recommendation for composing to the
peer: encrypt, available, discourage, or disable. With --from the sending
account's prefer-encrypt policy is taken into account; otherwise the
first enabled account is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ownPrefer := header.PreferNoPreference
		if statusFrom != "" {
			acct, err := s.GetAccount(statusFrom)
			if err != nil {
				return err
			}
			ownPrefer = acct.PreferEncrypt
		} else {
			accounts, err := s.ListAccounts()
			if err != nil {
				return err
			}
			for _, a := range accounts {
				if a.Enabled {
					ownPrefer = a.PreferEncrypt
					break
				}
			}
		}

		p, err := s.GetOrNewPeer(args[0])
		if err != nil {
			return err
		}
		rec := peer.Recommend(p, ownPrefer, false)

		var styled string
		switch rec {
		case peer.Encrypt:
			styled = styleEncrypt.Render(rec.String())
		case peer.Available:
			styled = styleAvailable.Render(rec.String())
		case peer.Discourage:
			styled = styleDiscourage.Render(rec.String())
		default:
			styled = styleDisable.Render(rec.String())
		}

		fmt.Printf("%s %s\n", styleLabel.Render("peer:"), p.Addr)
		fmt.Printf("%s %s\n", styleLabel.Render("state:"), p.State)
		fmt.Printf("%s %s\n", styleLabel.Render("recommendation:"), styled)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFrom, "from", "", "sending account to evaluate against")
	rootCmd.AddCommand(statusCmd)
}
