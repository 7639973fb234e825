// Package creds sources the username and password used to authenticate
// against the administrative API. Retrieval is pluggable: credentials can
// come from a JSON file, an interactive prompt, or be supplied directly, and
// providers can be chained so a file missing its password falls through to a
// prompt.
package creds

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/objstore-policy-mgmt/internal/config"
)

// Provider yields a username and password. A provider may return an empty
// password, leaving it to a later provider in a chain to fill in.
type Provider interface {
	Credentials() (username, passwd string, err error)
}

// Static supplies fixed credentials
type Static struct {
	Username string
	Passwd   string
}

func (s Static) Credentials() (string, string, error) {
	return s.Username, s.Passwd, nil
}

// File reads credentials from a JSON file of the form
// {"username": ..., "passwd": ...}; passwd may be absent.
type File string

func (f File) Credentials() (string, string, error) {
	c, err := config.LoadCredentials(os.ExpandEnv(string(f)))
	if err != nil {
		return "", "", err
	}
	return c.Username, c.Passwd, nil
}

// Prompt reads the password interactively without echo. The username must
// come from an earlier provider in a chain.
type Prompt struct {
	// Message written before reading, defaults to "Object Store API Password: "
	Message string
}

func (p Prompt) Credentials() (string, string, error) {
	msg := p.Message
	if msg == "" {
		msg = "Object Store API Password: "
	}
	fmt.Fprint(os.Stderr, msg)

	passwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}
	return "", string(passwd), nil
}

// Chain combines providers: the first non-empty username and the first
// non-empty password win. It fails if either is still missing at the end.
type Chain []Provider

func (c Chain) Credentials() (string, string, error) {
	var username, passwd string
	for _, p := range c {
		if username != "" && passwd != "" {
			break
		}
		u, pw, err := p.Credentials()
		if err != nil {
			return "", "", err
		}
		if username == "" {
			username = u
		}
		if passwd == "" {
			passwd = pw
		}
	}

	if username == "" {
		return "", "", fmt.Errorf("no username set")
	}
	if passwd == "" {
		return "", "", fmt.Errorf("no password set")
	}
	return username, passwd, nil
}
