package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const passwordEnv = "CIPHERKEEP_PASSWORD"

func askPassword(prompt string) (string, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.New("no password on stdin")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	defer func() { _, _ = fmt.Fprintln(os.Stderr) }()
	_, _ = fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// askNewPassword asks twice and requires both entries to match.
func askNewPassword() (string, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	p, err := askPassword("Choose password: ")
	if err != nil {
		return "", err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return p, nil
	}
	again, err := askPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if p != again {
		return "", errors.New("passwords do not match")
	}
	return p, nil
}
