package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Inspect remembered peer state",
}

var peerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		peers, err := s.ListPeers()
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			fmt.Println("no peers yet; parse some mail first")
			return nil
		}
		for _, p := range peers {
			fmt.Printf("%s\tstate=%s\tprefer-encrypt=%s\tlast-seen=%s\n",
				p.Addr, p.State, p.PreferEncrypt, fmtTime(p.LastSeen))
		}
		return nil
	},
}

var peerShowCmd = &cobra.Command{
	Use:   "show [addr]",
	Short: "Show one peer's full Autocrypt state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.GetPeer(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("addr:                %s\n", p.Addr)
		fmt.Printf("state:               %s\n", p.State)
		fmt.Printf("prefer-encrypt:      %s\n", p.PreferEncrypt)
		fmt.Printf("last-seen:           %s\n", fmtTime(p.LastSeen))
		fmt.Printf("autocrypt-timestamp: %s\n", fmtTime(p.AutocryptTimestamp))
		fmt.Printf("gossip-timestamp:    %s\n", fmtTime(p.GossipTimestamp))
		fmt.Printf("direct key:          %s\n", fmtKey(p.Keydata))
		fmt.Printf("gossip key:          %s\n", fmtKey(p.GossipKeydata))
		return nil
	},
}

var peerRemoveCmd = &cobra.Command{
	Use:   "remove [addr]",
	Short: "Forget a peer entirely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeletePeer(args[0]); err != nil {
			return err
		}
		fmt.Printf("removed peer %s\n", args[0])
		return nil
	},
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}

func fmtKey(keydata string) string {
	if keydata == "" {
		return "none"
	}
	return fmt.Sprintf("%d bytes (base64)", len(keydata))
}

func init() {
	peerCmd.AddCommand(peerListCmd, peerShowCmd, peerRemoveCmd)
	rootCmd.AddCommand(peerCmd)
}
