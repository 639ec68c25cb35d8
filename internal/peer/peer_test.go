package peer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"goac/internal/header"
	"goac/internal/store"
)

var (
	t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
	t2 = t0.Add(48 * time.Hour)
)

func TestApplyHeader(t *testing.T) {
	tests := []struct {
		name      string
		peer      store.Peer
		attrs     header.Attrs
		effective time.Time
		want      store.Peer
	}{
		{
			name:      "fresh peer",
			peer:      store.Peer{Addr: "bob@x", State: StateNothing},
			attrs:     header.Attrs{Addr: "bob@x", Keydata: "KEY1", PreferEncrypt: header.PreferMutual},
			effective: t1,
			want: store.Peer{
				Addr: "bob@x", Keydata: "KEY1", PreferEncrypt: header.PreferMutual,
				LastSeen: t1, AutocryptTimestamp: t1, State: StateAvailable,
			},
		},
		{
			name: "newer header replaces key",
			peer: store.Peer{
				Addr: "bob@x", Keydata: "KEY1", PreferEncrypt: header.PreferMutual,
				LastSeen: t1, AutocryptTimestamp: t1, State: StateAvailable,
			},
			attrs:     header.Attrs{Addr: "bob@x", Keydata: "KEY2"},
			effective: t2,
			want: store.Peer{
				Addr: "bob@x", Keydata: "KEY2", PreferEncrypt: header.PreferNoPreference,
				LastSeen: t2, AutocryptTimestamp: t2, State: StateAvailable,
			},
		},
		{
			name: "stale header ignored",
			peer: store.Peer{
				Addr: "bob@x", Keydata: "KEY2", PreferEncrypt: header.PreferMutual,
				LastSeen: t2, AutocryptTimestamp: t2, State: StateAvailable,
			},
			attrs:     header.Attrs{Addr: "bob@x", Keydata: "OLD"},
			effective: t1,
			want: store.Peer{
				Addr: "bob@x", Keydata: "KEY2", PreferEncrypt: header.PreferMutual,
				LastSeen: t2, AutocryptTimestamp: t2, State: StateAvailable,
			},
		},
		{
			name: "header clears reset state",
			peer: store.Peer{
				Addr: "bob@x", Keydata: "KEY1", LastSeen: t1,
				AutocryptTimestamp: t0, State: StateReset,
			},
			attrs:     header.Attrs{Addr: "bob@x", Keydata: "KEY1"},
			effective: t2,
			want: store.Peer{
				Addr: "bob@x", Keydata: "KEY1", PreferEncrypt: header.PreferNoPreference,
				LastSeen: t2, AutocryptTimestamp: t2, State: StateAvailable,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.peer
			ApplyHeader(&p, tt.attrs, tt.effective)
			if diff := cmp.Diff(tt.want, p); diff != "" {
				t.Errorf("peer mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyGossip(t *testing.T) {
	tests := []struct {
		name      string
		peer      store.Peer
		attrs     header.Attrs
		effective time.Time
		want      store.Peer
	}{
		{
			name:      "gossip for unknown peer",
			peer:      store.Peer{Addr: "carol@x", State: StateNothing},
			attrs:     header.Attrs{Addr: "carol@x", Keydata: "GKEY"},
			effective: t1,
			want: store.Peer{
				Addr: "carol@x", GossipKeydata: "GKEY", GossipTimestamp: t1,
				State: StateGossip,
			},
		},
		{
			name: "gossip does not override direct key state",
			peer: store.Peer{
				Addr: "carol@x", Keydata: "KEY1", AutocryptTimestamp: t1,
				State: StateAvailable,
			},
			attrs:     header.Attrs{Addr: "carol@x", Keydata: "GKEY"},
			effective: t2,
			want: store.Peer{
				Addr: "carol@x", Keydata: "KEY1", AutocryptTimestamp: t1,
				GossipKeydata: "GKEY", GossipTimestamp: t2, State: StateAvailable,
			},
		},
		{
			name: "older gossip ignored",
			peer: store.Peer{
				Addr: "carol@x", GossipKeydata: "GKEY2", GossipTimestamp: t2,
				State: StateGossip,
			},
			attrs:     header.Attrs{Addr: "carol@x", Keydata: "GKEY1"},
			effective: t1,
			want: store.Peer{
				Addr: "carol@x", GossipKeydata: "GKEY2", GossipTimestamp: t2,
				State: StateGossip,
			},
		},
		{
			name: "gossip does not clear reset",
			peer: store.Peer{
				Addr: "carol@x", LastSeen: t1, State: StateReset,
			},
			attrs:     header.Attrs{Addr: "carol@x", Keydata: "GKEY"},
			effective: t2,
			want: store.Peer{
				Addr: "carol@x", LastSeen: t1, GossipKeydata: "GKEY",
				GossipTimestamp: t2, State: StateReset,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.peer
			ApplyGossip(&p, tt.attrs, tt.effective)
			if diff := cmp.Diff(tt.want, p); diff != "" {
				t.Errorf("peer mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyNoHeader(t *testing.T) {
	p := store.Peer{
		Addr: "bob@x", Keydata: "KEY1", LastSeen: t1,
		AutocryptTimestamp: t1, State: StateAvailable,
	}
	ApplyNoHeader(&p, t2)
	if p.State != StateReset {
		t.Errorf("expected reset, got %s", p.State)
	}
	if !p.LastSeen.Equal(t2) {
		t.Errorf("last seen not advanced: %s", p.LastSeen)
	}

	// Older mail without a header must not reset a newer key.
	p = store.Peer{
		Addr: "bob@x", Keydata: "KEY1", LastSeen: t2,
		AutocryptTimestamp: t2, State: StateAvailable,
	}
	ApplyNoHeader(&p, t1)
	if p.State != StateAvailable {
		t.Errorf("stale mail must not reset peer, got %s", p.State)
	}

	// A peer with no key never enters reset.
	p = store.Peer{Addr: "bob@x", State: StateNothing}
	ApplyNoHeader(&p, t1)
	if p.State != StateNothing {
		t.Errorf("keyless peer must stay nothing, got %s", p.State)
	}
}

func TestEncryptionKeydata(t *testing.T) {
	if got := EncryptionKeydata(store.Peer{Keydata: "D", GossipKeydata: "G"}); got != "D" {
		t.Errorf("direct key must win, got %s", got)
	}
	if got := EncryptionKeydata(store.Peer{GossipKeydata: "G"}); got != "G" {
		t.Errorf("expected gossip fallback, got %s", got)
	}
	if got := EncryptionKeydata(store.Peer{}); got != "" {
		t.Errorf("expected empty, got %s", got)
	}
}

func TestRecommend(t *testing.T) {
	fresh := store.Peer{
		Addr: "bob@x", Keydata: "KEY", PreferEncrypt: header.PreferMutual,
		LastSeen: t1, AutocryptTimestamp: t1, State: StateAvailable,
	}
	stale := fresh
	stale.LastSeen = t1.Add(36 * 24 * time.Hour)

	tests := []struct {
		name      string
		peer      store.Peer
		ownPrefer string
		reply     bool
		want      Recommendation
	}{
		{"no key", store.Peer{Addr: "bob@x"}, header.PreferMutual, false, Disable},
		{"both mutual", fresh, header.PreferMutual, false, Encrypt},
		{"own nopreference", fresh, header.PreferNoPreference, false, Available},
		{"peer nopreference", store.Peer{
			Addr: "bob@x", Keydata: "KEY", PreferEncrypt: header.PreferNoPreference,
			LastSeen: t1, AutocryptTimestamp: t1, State: StateAvailable,
		}, header.PreferMutual, false, Available},
		{"gossip only", store.Peer{
			Addr: "carol@x", GossipKeydata: "GKEY", GossipTimestamp: t1,
			State: StateGossip,
		}, header.PreferMutual, false, Discourage},
		{"reset", store.Peer{
			Addr: "bob@x", Keydata: "KEY", LastSeen: t2,
			AutocryptTimestamp: t1, State: StateReset,
		}, header.PreferMutual, false, Discourage},
		{"key older than 35 days", stale, header.PreferMutual, false, Discourage},
		{"reply to encrypted", stale, header.PreferNoPreference, true, Encrypt},
		{"reply without key", store.Peer{Addr: "bob@x"}, header.PreferMutual, true, Disable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(tt.peer, tt.ownPrefer, tt.reply)
			if got != tt.want {
				t.Errorf("Recommend() = %s, want %s", got, tt.want)
			}
		})
	}
}
