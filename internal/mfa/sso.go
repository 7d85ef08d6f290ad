package mfa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	"golang.org/x/oauth2"
)

// IdentityProvider is the OAuth2 authorization code boundary.
type IdentityProvider interface {
	// AuthCodeURL returns the provider login URL carrying state.
	AuthCodeURL(state string) string
	// ResolveEmail exchanges an authorization code and returns the user email.
	ResolveEmail(ctx context.Context, code string) (string, error)
}

// OAuthProvider implements IdentityProvider with golang.org/x/oauth2. The
// email is read from the id_token claims, falling back to the userinfo endpoint.
type OAuthProvider struct {
	server      string
	oauth       *oauth2.Config
	userInfoURL string
}

// NewOAuthProvider builds a provider from cfg. It returns nil when SSO is not configured.
func NewOAuthProvider(cfg config.SSOConfig) *OAuthProvider {
	if !cfg.Configured() {
		return nil
	}
	return &OAuthProvider{
		server: cfg.Server,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizationURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: strings.TrimSpace(cfg.UserInfoURL),
	}
}

// AuthCodeURL implements IdentityProvider.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ResolveEmail implements IdentityProvider.
func (p *OAuthProvider) ResolveEmail(ctx context.Context, code string) (string, error) {
	token, errExchange := p.oauth.Exchange(ctx, code)
	if errExchange != nil {
		return "", fmt.Errorf("sso %s: exchange: %w", p.server, errExchange)
	}
	if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
		claims, errClaims := security.ParseIDTokenClaims(raw)
		if errClaims == nil {
			if email := claims.ResolvedEmail(); email != "" {
				return email, nil
			}
		}
	}
	if p.userInfoURL == "" {
		return "", fmt.Errorf("sso %s: no email claim and no userinfo endpoint", p.server)
	}
	return p.userInfoEmail(ctx, token)
}

func (p *OAuthProvider) userInfoEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if errReq != nil {
		return "", errReq
	}
	resp, errDo := p.oauth.Client(ctx, token).Do(req)
	if errDo != nil {
		return "", fmt.Errorf("sso %s: userinfo: %w", p.server, errDo)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sso %s: userinfo status %d", p.server, resp.StatusCode)
	}
	var claims security.IDTokenClaims
	if errDecode := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&claims); errDecode != nil {
		return "", fmt.Errorf("sso %s: userinfo decode: %w", p.server, errDecode)
	}
	email := claims.ResolvedEmail()
	if email == "" {
		return "", fmt.Errorf("sso %s: userinfo without email", p.server)
	}
	return email, nil
}
