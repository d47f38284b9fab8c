package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email"`
	Server      string    `json:"server"`
	ExpiresAt   time.Time `json:"expires_at"`
}

var errLoginRequired = errors.New("no valid token (run catalogctl login)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "catalogctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "catalogctl")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func cacheDir() string { return filepath.Join(cfgDir(), "httpcache") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

// loadToken returns the stored token for server. Expired tokens and tokens
// issued by another server count as missing.
func loadToken(server string, now time.Time) (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return tokenFile{}, errLoginRequired
	}
	if err != nil {
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || !now.Before(tf.ExpiresAt) || tf.Server != server {
		return tokenFile{}, errLoginRequired
	}
	return tf, nil
}

func clearToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
