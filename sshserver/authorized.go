package sshserver

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// AuthorizedKeys is a parsed authorized_keys file.
type AuthorizedKeys struct {
	keys [][]byte
}

// ParseAuthorizedKeys parses authorized_keys content. Blank lines and
// comments are skipped; options and trailing comments on a key line are
// accepted and ignored. Content without a single valid key is an error.
func ParseAuthorizedKeys(data []byte) (*AuthorizedKeys, error) {
	out := &AuthorizedKeys{}
	rest := data
	for len(bytes.TrimSpace(rest)) > 0 {
		trimmed := bytes.TrimSpace(firstLine(rest))
		if len(trimmed) == 0 || trimmed[0] == '#' {
			rest = afterFirstLine(rest)
			continue
		}
		key, _, _, next, err := ssh.ParseAuthorizedKey(rest)
		if err != nil {
			if len(out.keys) > 0 {
				break
			}
			return nil, fmt.Errorf("parse authorized_keys: %w", err)
		}
		out.keys = append(out.keys, key.Marshal())
		rest = next
	}
	return out, nil
}

// LoadAuthorizedKeys reads and parses the authorized_keys file at path.
func LoadAuthorizedKeys(path string) (*AuthorizedKeys, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("authorized_keys path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authorized_keys: %w", err)
	}
	return ParseAuthorizedKeys(data)
}

// Len returns the number of keys.
func (a *AuthorizedKeys) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Contains reports whether key is authorized.
func (a *AuthorizedKeys) Contains(key ssh.PublicKey) bool {
	if a == nil || key == nil {
		return false
	}
	wire := key.Marshal()
	for _, k := range a.keys {
		if bytes.Equal(k, wire) {
			return true
		}
	}
	return false
}

func firstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i]
	}
	return data
}

func afterFirstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[i+1:]
	}
	return nil
}
