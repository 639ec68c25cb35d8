package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"goac/internal/message"
)

var (
	composeFrom     string
	composeTo       []string
	composeSubject  string
	composeBody     string
	composeBodyFile string
	composeGossip   bool
	composeOut      string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose a signed, encrypted Autocrypt email",
	Long: `Builds a PGP/MIME encrypted message to the given recipients,
signed by the sending account and carrying its Autocrypt header. Every
recipient needs a key on file (from earlier parsed mail or gossip).

With --gossip the encrypted part also carries Autocrypt-Gossip headers
for all recipients, so they learn each other's keys.

The RFC 822 output goes to stdout or --out; hand it to sendmail or your
MUA of choice.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if composeFrom == "" || len(composeTo) == 0 {
			return fmt.Errorf("--from and at least one --to are required")
		}
		body := composeBody
		if composeBodyFile != "" {
			var data []byte
			var err error
			if composeBodyFile == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(composeBodyFile)
			}
			if err != nil {
				return err
			}
			body = string(data)
		}

		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		m, err := message.Compose(s, composeFrom, composeTo, composeSubject, body,
			message.ComposeOpts{Gossip: composeGossip})
		if err != nil {
			return err
		}
		logger.Info("composed message",
			zap.String("from", composeFrom),
			zap.Strings("to", composeTo),
			zap.Bool("gossip", composeGossip))

		out := os.Stdout
		if composeOut != "" {
			f, err := os.Create(composeOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		_, err = io.WriteString(out, m.String())
		return err
	},
}

func init() {
	composeCmd.Flags().StringVar(&composeFrom, "from", "", "sending account address")
	composeCmd.Flags().StringSliceVar(&composeTo, "to", nil, "recipient address (repeatable)")
	composeCmd.Flags().StringVar(&composeSubject, "subject", "", "message subject")
	composeCmd.Flags().StringVar(&composeBody, "body", "", "message body")
	composeCmd.Flags().StringVar(&composeBodyFile, "body-file", "", "read body from file ('-' for stdin)")
	composeCmd.Flags().BoolVar(&composeGossip, "gossip", false, "attach gossip keys for all recipients")
	composeCmd.Flags().StringVar(&composeOut, "out", "", "write message to file instead of stdout")
	rootCmd.AddCommand(composeCmd)
}
