package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// passphraseEnv lets scripts supply the key passphrase without a terminal.
const passphraseEnv = "WAM_PASSPHRASE"

// readSecret prompts for a secret without echoing input. It fails if stdin
// is not a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot read secret: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(secret), nil
}

// readPassphrase returns the key passphrase from WAM_PASSPHRASE or a prompt.
func readPassphrase() (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	return readSecret("Passphrase: ")
}

// readNewPassphrase asks for a new passphrase twice and checks they match.
func readNewPassphrase() (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	first, err := readSecret("New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := readSecret("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}
