package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"goac/internal/message"
	"goac/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and parse mail as it arrives",
	Long: `Processes every file already in the directory, then keeps
watching for new ones. Each file is run through the same pipeline as
'goac parse'. Setup messages are skipped (they need an interactive
code). Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watch.New(s, args[0])
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		for ev := range w.Events() {
			if ev.Err != nil {
				logger.Warn("failed to process mail file",
					zap.String("path", ev.Path), zap.Error(ev.Err))
				fmt.Fprintf(os.Stderr, "%s: %v\n", ev.Path, ev.Err)
				continue
			}
			switch ev.Result.Kind {
			case message.KindAutocrypt, message.KindGossip:
				fmt.Printf("%s: imported key of %s (gossip: %d)\n",
					ev.Path, ev.Result.From, ev.Result.GossipImported)
			default:
				fmt.Printf("%s: no Autocrypt headers (from %s)\n", ev.Path, ev.Result.From)
			}
		}
		return <-done
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
