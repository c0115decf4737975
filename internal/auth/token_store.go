package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

// TokenStore persists one OAuth token.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// FileTokenStore keeps the token in a JSON file readable only by the owner.
type FileTokenStore struct {
	Path string
}

// tokenFile also accepts the "token" key written by Google's Python
// client libraries, so existing token files keep working.
type tokenFile struct {
	AccessToken  string    `json:"access_token,omitempty"`
	Token        string    `json:"token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

func (s FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no token at %s; run `ga-report auth login`", domain.ErrAuthentication, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read token: %w", domain.ErrAuthentication, err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: parse token %s: %w", domain.ErrAuthentication, s.Path, err)
	}
	access := tf.AccessToken
	if access == "" {
		access = tf.Token
	}
	if access == "" && tf.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token file %s holds no credentials", domain.ErrAuthentication, s.Path)
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    tf.TokenType,
		RefreshToken: tf.RefreshToken,
		Expiry:       tf.Expiry,
	}, nil
}

// Save writes atomically. A refresh response without a refresh token
// keeps the one already on disk.
func (s FileTokenStore) Save(tok *oauth2.Token) error {
	refresh := tok.RefreshToken
	if refresh == "" {
		if prev, err := s.Load(); err == nil {
			refresh = prev.RefreshToken
		}
	}
	data, err := json.MarshalIndent(tokenFile{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: refresh,
		Expiry:       tok.Expiry,
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".token-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}
