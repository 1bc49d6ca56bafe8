package launchpad

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credentials is the OAuth 1.0 token set Launchpad issues to a consumer.
// Launchpad accepts PLAINTEXT signatures, so the secret pair is all a signed
// request needs.
type Credentials struct {
	ConsumerKey string `yaml:"consumer_key"`
	AccessToken string `yaml:"access_token"`
	TokenSecret string `yaml:"token_secret"`
}

var ErrNoCredentials = errors.New("launchpad credentials not found")

// LoadCredentials reads the credential file written by a prior authorization
// run. A missing file is reported as ErrNoCredentials so callers can print
// setup instructions instead of a raw open error.
func LoadCredentials(path string) (Credentials, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w: %s", ErrNoCredentials, path)
	}
	if err != nil {
		return Credentials{}, err
	}
	var creds Credentials
	if err := yaml.Unmarshal(b, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(creds.AccessToken) == "" || strings.TrimSpace(creds.TokenSecret) == "" {
		return Credentials{}, fmt.Errorf("%s is missing access_token or token_secret", path)
	}
	if strings.TrimSpace(creds.ConsumerKey) == "" {
		creds.ConsumerKey = "lpshipit"
	}
	return creds, nil
}

// SaveCredentials writes the credential file with owner-only permissions.
func SaveCredentials(path string, creds Credentials) error {
	b, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// AuthorizationHeader builds the OAuth PLAINTEXT Authorization value Launchpad
// expects on every API request.
func (c Credentials) AuthorizationHeader(nonce string, timestamp int64) string {
	return fmt.Sprintf(
		`OAuth realm="https://api.launchpad.net/", oauth_consumer_key=%q, `+
			`oauth_token=%q, oauth_signature_method="PLAINTEXT", `+
			`oauth_signature="&%s", oauth_timestamp="%d", oauth_nonce=%q, oauth_version="1.0"`,
		c.ConsumerKey, c.AccessToken, c.TokenSecret, timestamp, nonce)
}
