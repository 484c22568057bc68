package secretstore

import (
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

// ServiceID names the vault collection holding credential secrets.
const ServiceID = "com.github.fmitra.OTPKeeper"

const (
	passwordServiceID = ServiceID + ".Login"
	stateServiceID    = ServiceID + ".State"
)

// Rings holds one keyring per vault namespace.
type Rings struct {
	Secrets  keyring.Keyring
	Password keyring.Keyring
	State    keyring.Keyring
}

// VaultConfig selects the OS vault backing the store.
type VaultConfig struct {
	// Backend is a keyring backend name such as "secret-service",
	// "keychain", "wincred", "kwallet", "pass" or "file". Empty lets
	// the keyring library pick the first available backend.
	Backend string
	// FileDir is the directory of the encrypted file backend.
	FileDir string
	// FilePassword unlocks the encrypted file backend.
	FilePassword string
}

// OpenRings opens the three vault namespaces.
func OpenRings(conf VaultConfig) (Rings, error) {
	var backends []keyring.BackendType
	if conf.Backend != "" {
		backends = []keyring.BackendType{keyring.BackendType(strings.ToLower(conf.Backend))}
	}

	open := func(service string) (keyring.Keyring, error) {
		kr, err := keyring.Open(keyring.Config{
			ServiceName:             service,
			AllowedBackends:         backends,
			LibSecretCollectionName: "login",
			KeychainName:            "login",
			KWalletAppID:            ServiceID,
			KWalletFolder:           service,
			FileDir:                 conf.FileDir,
			FilePasswordFunc:        keyring.FixedStringPrompt(conf.FilePassword),
			PassPrefix:              service,
			WinCredPrefix:           service,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot open vault %s: %w", service, err)
		}
		return kr, nil
	}

	var (
		r   Rings
		err error
	)
	if r.Secrets, err = open(ServiceID); err != nil {
		return r, err
	}
	if r.Password, err = open(passwordServiceID); err != nil {
		return r, err
	}
	if r.State, err = open(stateServiceID); err != nil {
		return r, err
	}

	return r, nil
}
