// Package authentication keeps vrrelayCLI's admin API tokens in the OS
// keychain. Entries are keyed by the relay's API URL, so one workstation can
// hold tokens for several relays (a lab rig and a dev box, say) at once.
package authentication

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const serviceName = "vrrelay-cli"

var (
	ErrNotLoggedIn  = errors.New("not logged in, run 'vrrelayCLI login' first")
	ErrTokenExpired = errors.New("saved token has expired, please log in again")
)

// Credentials is what `login` and `token --save` leave behind for one relay.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	Subject     string    `json:"subject"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry. A zero ExpiresAt
// never expires.
func (c *Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// account is the keychain account name for a relay API URL.
func account(apiURL string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(apiURL)), "/")
}

func Save(apiURL string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := keyring.Set(serviceName, account(apiURL), string(data)); err != nil {
		return fmt.Errorf("keychain write for %s: %w", apiURL, err)
	}
	return nil
}

// Load returns the saved token for apiURL, or ErrNotLoggedIn / ErrTokenExpired.
func Load(apiURL string) (*Credentials, error) {
	value, err := keyring.Get(serviceName, account(apiURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("keychain read for %s: %w", apiURL, err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, fmt.Errorf("corrupt keychain entry for %s: %w", apiURL, err)
	}
	if creds.Expired(time.Now()) {
		return nil, ErrTokenExpired
	}
	return &creds, nil
}

// Forget removes the token for apiURL. Forgetting a relay that was never
// saved is not an error.
func Forget(apiURL string) error {
	err := keyring.Delete(serviceName, account(apiURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
