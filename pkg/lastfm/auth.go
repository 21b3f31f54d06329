package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// AuthService provides authentication operations for the Last.fm API.
type AuthService struct {
	client *Client
}

// GetToken requests an unauthorized request token. The user approves it at
// GetAuthURL before it can be exchanged with GetSession.
func (a *AuthService) GetToken(ctx context.Context) (*Token, error) {
	inner, err := a.client.call(ctx, "auth.getToken", nil, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token string `xml:"token"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse token response: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("lastfm: empty token in response")
	}

	return &Token{Token: strings.TrimSpace(resp.Token)}, nil
}

// GetAuthURL returns the URL where users authorize the token.
func (a *AuthService) GetAuthURL(token string) string {
	q := url.Values{}
	q.Set("api_key", a.client.apiKey)
	q.Set("token", token)
	return DefaultAuthURL + "?" + q.Encode()
}

// GetSession exchanges an authorized token for a session key. Session keys
// do not expire and should be stored for reuse.
func (a *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	inner, err := a.client.call(ctx, "auth.getSession", map[string]string{"token": token}, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Name       string `xml:"session>name"`
		Key        string `xml:"session>key"`
		Subscriber int    `xml:"session>subscriber"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse session response: %w", err)
	}

	return &Session{
		Key:        strings.TrimSpace(resp.Key),
		Username:   strings.TrimSpace(resp.Name),
		Subscriber: resp.Subscriber == 1,
	}, nil
}

// unmarshalInner decodes the children of <lfm> into v.
func unmarshalInner(inner []byte, v interface{}) error {
	wrapped := make([]byte, 0, len(inner)+13)
	wrapped = append(wrapped, "<root>"...)
	wrapped = append(wrapped, inner...)
	wrapped = append(wrapped, "</root>"...)
	return xml.Unmarshal(wrapped, v)
}
