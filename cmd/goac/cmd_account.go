package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"goac/internal/account"
)

var (
	accountName          string
	accountPreferEncrypt string
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage own Autocrypt identities",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create [addr]",
	Short: "Create an account and generate its key pair",
	Long: `Generates a fresh OpenPGP key for the address and stores it.
The prefer-encrypt policy controls what the Autocrypt header announces:
mutual asks correspondents to encrypt by default, nopreference leaves the
decision to them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		pe := accountPreferEncrypt
		if pe == "" {
			pe = cfg.Account.PreferEncrypt
		}
		a, err := account.Create(s, args[0], accountName, pe)
		if err != nil {
			return err
		}
		logger.Info("account created", zap.String("addr", a.Addr))
		fmt.Printf("created account %s (prefer-encrypt=%s)\n", a.Addr, a.PreferEncrypt)
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		accounts, err := s.ListAccounts()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("no accounts; run 'goac account create <addr>'")
			return nil
		}
		for _, a := range accounts {
			state := "enabled"
			if !a.Enabled {
				state = "disabled"
			}
			fmt.Printf("%s\t%s\tprefer-encrypt=%s\n", a.Addr, state, a.PreferEncrypt)
		}
		return nil
	},
}

var accountEnableCmd = &cobra.Command{
	Use:   "enable [addr]",
	Short: "Enable Autocrypt processing for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAccountEnabled(args[0], true)
	},
}

var accountDisableCmd = &cobra.Command{
	Use:   "disable [addr]",
	Short: "Disable Autocrypt processing for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAccountEnabled(args[0], false)
	},
}

func setAccountEnabled(addr string, enabled bool) error {
	_, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SetAccountEnabled(addr, enabled); err != nil {
		return err
	}
	fmt.Printf("account %s enabled=%v\n", addr, enabled)
	return nil
}

func init() {
	accountCreateCmd.Flags().StringVar(&accountName, "name", "", "display name for the key's user ID")
	accountCreateCmd.Flags().StringVar(&accountPreferEncrypt, "prefer-encrypt", "", "mutual or nopreference (default from config)")
	accountCmd.AddCommand(accountCreateCmd, accountListCmd, accountEnableCmd, accountDisableCmd)
	rootCmd.AddCommand(accountCmd)
}
