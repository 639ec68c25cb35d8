package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"goac/internal/message"
)

var parseSetupCode string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an inbound email and update peer state",
	Long: `Reads an RFC 822 message from the file (or stdin), imports any
Autocrypt and Autocrypt-Gossip keys into the peer store, decrypts the
body when one of our accounts is among the recipients, and prints the
plaintext.

Setup messages need --setup-code; the recovered key is installed as an
account.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := message.ParseAny(s, raw, parseSetupCode)
		if err != nil {
			return err
		}
		logger.Info("parsed message",
			zap.String("from", res.From),
			zap.Int("gossip_imported", res.GossipImported))

		switch res.Kind {
		case message.KindSetup:
			fmt.Fprintf(os.Stderr, "installed account %s from setup message\n", res.Account.Addr)
		case message.KindAutocrypt, message.KindGossip:
			fmt.Fprintf(os.Stderr, "imported Autocrypt key of %s", res.From)
			if res.GossipImported > 0 {
				fmt.Fprintf(os.Stderr, " and %d gossip key(s)", res.GossipImported)
			}
			fmt.Fprintln(os.Stderr)
		case message.KindPlain:
			fmt.Fprintf(os.Stderr, "no Autocrypt headers in mail from %s\n", res.From)
		}
		if len(res.Plaintext) > 0 && res.Kind != message.KindSetup {
			os.Stdout.Write(res.Plaintext)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseSetupCode, "setup-code", "", "setup code for Autocrypt Setup Messages")
	rootCmd.AddCommand(parseCmd)
}
