package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"goac/internal/message"
)

var (
	setupOut  string
	setupCode string
)

var setupMessageCmd = &cobra.Command{
	Use:   "setup-message",
	Short: "Export or import Autocrypt Setup Messages",
}

var setupExportCmd = &cobra.Command{
	Use:   "export [addr]",
	Short: "Export an account's key as a setup message",
	Long: `Writes an Autocrypt Setup Message for the account: the secret
key, symmetrically encrypted with a fresh setup code. The code is printed
to stderr; it is shown once and is required to import the message on the
other device.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		m, code, err := message.ComposeSetup(s, args[0], message.ComposeOpts{})
		if err != nil {
			return err
		}

		out := os.Stdout
		if setupOut != "" {
			f, err := os.Create(setupOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if _, err := io.WriteString(out, m.String()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "setup code (write it down, shown once):\n%s\n", code)
		return nil
	},
}

var setupImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a setup message and install its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if setupCode == "" {
			return fmt.Errorf("--code is required")
		}
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := message.ParseAny(s, raw, setupCode)
		if err != nil {
			return err
		}
		if res.Kind != message.KindSetup {
			return fmt.Errorf("not a setup message")
		}
		fmt.Printf("installed account %s\n", res.Account.Addr)
		return nil
	},
}

func init() {
	setupExportCmd.Flags().StringVar(&setupOut, "out", "", "write message to file instead of stdout")
	setupImportCmd.Flags().StringVar(&setupCode, "code", "", "setup code shown at export time")
	setupMessageCmd.AddCommand(setupExportCmd, setupImportCmd)
	rootCmd.AddCommand(setupMessageCmd)
}
