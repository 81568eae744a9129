package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/skyrc/skyrc/internal/domain"
)

const providerName = "atproto"

// Settings carries the endpoints and credentials for the upstream
// authorization server.
type Settings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
	ProfileURL   string
}

// OAuthProvider implements Provider against an atproto-style OAuth server:
// code exchange via golang.org/x/oauth2, then a profile fetch with the
// issued token to resolve handle, display name and avatar.
type OAuthProvider struct {
	cfg        *oauth2.Config
	revokeURL  string
	profileURL string
	client     *http.Client
}

func NewOAuthProvider(s Settings) (*OAuthProvider, error) {
	if s.ClientID == "" || s.RedirectURL == "" || s.AuthURL == "" || s.TokenURL == "" {
		return nil, errors.New("oauth settings missing required fields")
	}
	return &OAuthProvider{
		cfg: &oauth2.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RedirectURL:  s.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  s.AuthURL,
				TokenURL: s.TokenURL,
			},
			Scopes: []string{"atproto", "transition:generic"},
		},
		revokeURL:  s.RevokeURL,
		profileURL: s.ProfileURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *OAuthProvider) Name() string { return providerName }

// AuthCodeURL builds the authorization redirect for the given CSRF state.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the code for a token, resolves the profile behind it and
// returns the verified identity plus a grant that revokes the token.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (domain.Identity, Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, nil, fmt.Errorf("token exchange failed: %w", err)
	}

	did, _ := token.Extra("sub").(string)
	identity, err := p.fetchProfile(ctx, token, did)
	if err != nil {
		return domain.Identity{}, nil, err
	}

	return identity, &tokenGrant{
		token:     token,
		revokeURL: p.revokeURL,
		client:    p.client,
	}, nil
}

func (p *OAuthProvider) fetchProfile(ctx context.Context, token *oauth2.Token, did string) (domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("build profile request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("profile fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, fmt.Errorf("profile fetch failed: status %d", resp.StatusCode)
	}

	var profile struct {
		DID         string `json:"did"`
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
		Avatar      string `json:"avatar"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return domain.Identity{}, fmt.Errorf("decode profile: %w", err)
	}

	if profile.DID == "" {
		profile.DID = did
	}
	if profile.Handle == "" {
		// The provider asserts the subject even when the profile record is
		// bare; fall back to the DID as the visible handle.
		profile.Handle = profile.DID
	}

	identity, err := domain.NewIdentity(profile.DID, profile.Handle)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("provider returned unusable identity: %w", err)
	}
	identity.DisplayName = profile.DisplayName
	identity.Avatar = profile.Avatar
	identity.Description = profile.Description
	return identity, nil
}

// tokenGrant revokes the issued token at the provider's revocation endpoint.
type tokenGrant struct {
	token     *oauth2.Token
	revokeURL string
	client    *http.Client
}

func (g *tokenGrant) Revoke(ctx context.Context) error {
	if g.revokeURL == "" {
		return nil
	}
	form := url.Values{
		"token":           {g.token.AccessToken},
		"token_type_hint": {"access_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke request failed: status %d", resp.StatusCode)
	}
	return nil
}
