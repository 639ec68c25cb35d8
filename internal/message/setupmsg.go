package message

import (
	"goac/internal/logging"
	"goac/internal/mail"
	"goac/internal/setup"
	"goac/internal/store"
)

const setupIntro = setup.Intro

// setupPayload generates a fresh setup code and the encrypted payload for
// an account's secret key.
func setupPayload(acct store.Account) (code, payload string, err error) {
	code, err = setup.GenCode()
	if err != nil {
		return "", "", err
	}
	exported := setup.ExportKey(acct)
	payload, err = setup.Payload(exported, code)
	if err != nil {
		return "", "", err
	}
	return code, payload, nil
}

// parseSetup extracts and decrypts the setup payload, installing the
// recovered key as an account.
func parseSetup(s *store.Store, in *mail.Incoming, code string) (*Result, error) {
	payload, err := in.SetupPayload()
	if err != nil {
		return nil, err
	}
	armoredKey, err := setup.ParsePayload(payload, code)
	if err != nil {
		return nil, err
	}
	acct, err := setup.ImportKey(s, armoredKey)
	if err != nil {
		return nil, err
	}
	logging.Message("setup message installed account %s", acct.Addr)
	return &Result{
		Kind:      KindSetup,
		From:      in.From(),
		Plaintext: []byte(armoredKey),
		Account:   acct,
	}, nil
}
