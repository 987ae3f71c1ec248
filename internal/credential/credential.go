// Package credential resolves the node's IoT Hub identity from a stored
// connection credential.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// deviceIDKey is the connection-string key holding the hub device identifier.
const deviceIDKey = "DeviceId"

// ErrEmptyCredential is returned by a Store when no credential is configured.
var ErrEmptyCredential = errors.New("credential: connection string is empty")

// ExtractDeviceID returns the value of the DeviceId key in a semicolon-delimited
// key=value connection string. Once the DeviceId key has been seen, the first
// non-empty value from that pair onward is returned, so "DeviceId=;Other=x"
// yields "x". Returns false if no such value follows the key.
func ExtractDeviceID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	found := false
	start := 0
	for start < len(raw) {
		end := strings.IndexByte(raw[start:], ';')
		if end < 0 {
			end = len(raw)
		} else {
			end += start
		}

		pair := raw[start:end]
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			if pair[:eq] == deviceIDKey {
				found = true
			}
			if found && eq+1 < len(pair) {
				return pair[eq+1:], true
			}
		}
		start = end + 1
	}
	return "", false
}

// Store supplies the raw connection credential.
type Store interface {
	Load() (string, error)
}

// StaticStore returns a credential held in memory (config or environment).
type StaticStore struct {
	Value string
}

// Load returns the configured credential.
func (s StaticStore) Load() (string, error) {
	if strings.TrimSpace(s.Value) == "" {
		return "", ErrEmptyCredential
	}
	return s.Value, nil
}

// FileStore reads the credential from a file, trimming surrounding whitespace.
type FileStore struct {
	Path string
}

// Load reads and returns the credential file contents.
func (s FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", ErrEmptyCredential
	}
	return v, nil
}
