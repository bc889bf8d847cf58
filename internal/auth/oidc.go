package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/nawinsharma/kandid/internal/config"
)

// stateTTL bounds how long a login redirect may take
const stateTTL = 10 * time.Minute

var ErrInvalidState = errors.New("invalid or expired OIDC state")

// OIDCProvider runs the authorization code flow against one issuer
type OIDCProvider struct {
	config   *config.OIDCConfig
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier

	mu     sync.Mutex
	states map[string]time.Time // state -> issued at
	now    func() time.Time
}

// UserInfo is the identity extracted from a verified ID token
type UserInfo struct {
	Email  string
	Name   string
	Groups []string
}

// NewOIDCProvider discovers the issuer. It returns nil, nil when OIDC is disabled.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		config: cfg,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		states:   make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// AuthCodeURL returns the issuer redirect URL and the state it carries
func (p *OIDCProvider) AuthCodeURL() (string, string, error) {
	state, err := generateState()
	if err != nil {
		return "", "", err
	}

	p.mu.Lock()
	p.pruneStates()
	p.states[state] = p.now()
	p.mu.Unlock()

	return p.oauth2.AuthCodeURL(state), state, nil
}

// consumeState reports whether state was issued recently and forgets it
func (p *OIDCProvider) consumeState(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	issued, ok := p.states[state]
	if !ok {
		return false
	}
	delete(p.states, state)
	return p.now().Sub(issued) < stateTTL
}

func (p *OIDCProvider) pruneStates() {
	now := p.now()
	for s, issued := range p.states {
		if now.Sub(issued) >= stateTTL {
			delete(p.states, s)
		}
	}
}

// Exchange trades the authorization code for a verified identity
func (p *OIDCProvider) Exchange(ctx context.Context, state, code string) (*UserInfo, error) {
	if !p.consumeState(state) {
		return nil, ErrInvalidState
	}

	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	var claims struct {
		Email  string   `json:"email"`
		Name   string   `json:"name"`
		Groups []string `json:"groups"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	info := &UserInfo{Email: claims.Email, Name: claims.Name, Groups: claims.Groups}
	if err := p.admit(info); err != nil {
		return nil, err
	}
	return info, nil
}

// admit applies the email and allowed-groups policy to a verified identity
func (p *OIDCProvider) admit(info *UserInfo) error {
	if info.Email == "" {
		return fmt.Errorf("id_token has no email claim")
	}
	if len(p.config.AllowedGroups) == 0 {
		return nil
	}
	if slices.ContainsFunc(info.Groups, func(g string) bool {
		return slices.Contains(p.config.AllowedGroups, g)
	}) {
		return nil
	}
	return fmt.Errorf("user not in allowed groups")
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
