// Package provider signs users in through external OAuth identity providers.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Type identifies an identity provider.
type Type string

const (
	Google   Type = "google"
	GitHub   Type = "github"
	Facebook Type = "facebook"
	Discord  Type = "discord"
	Twitter  Type = "twitter"
	Apple    Type = "apple"
)

// AllTypes lists every provider type an account may reference.
var AllTypes = []Type{Google, GitHub, Facebook, Discord, Twitter, Apple}

var displayNames = map[Type]string{
	Google:   "Google",
	GitHub:   "GitHub",
	Facebook: "Facebook",
	Discord:  "Discord",
	Twitter:  "Twitter",
	Apple:    "Apple",
}

// DisplayName returns the human readable provider name.
func (t Type) DisplayName() string {
	if n, ok := displayNames[t]; ok {
		return n
	}
	return string(t)
}

// Profile is the identity a provider vouches for after a successful exchange.
type Profile struct {
	ID        string          `json:"id" validate:"required"`
	Email     string          `json:"email" validate:"required,email"`
	Name      string          `json:"name"`
	AvatarURL string          `json:"avatar,omitempty"`
	Provider  Type            `json:"provider" validate:"required,oneof=google github facebook discord twitter apple"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Tokens is the provider token material stored on the linked account.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	Expiry       time.Time
}

// TokensFromOAuth2 copies the fields of an exchanged oauth2 token.
func TokensFromOAuth2(tok *oauth2.Token) *Tokens {
	if tok == nil {
		return nil
	}
	t := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if v, ok := tok.Extra("id_token").(string); ok {
		t.IDToken = v
	}
	if v, ok := tok.Extra("scope").(string); ok {
		t.Scope = v
	}
	return t
}

// Provider runs the authorization code flow against one identity provider.
type Provider interface {
	Type() Type
	Scopes() []string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, *Tokens, error)
}

// Endpoints overrides provider URLs, mostly for tests.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	APIURL   string
}

func (e Endpoints) oauth2(def oauth2.Endpoint) oauth2.Endpoint {
	if e.AuthURL != "" {
		def.AuthURL = e.AuthURL
	}
	if e.TokenURL != "" {
		def.TokenURL = e.TokenURL
	}
	return def
}

func (e Endpoints) api(def string) string {
	if e.APIURL != "" {
		return e.APIURL
	}
	return def
}

// getJSON fetches url with the authorized client and decodes the body into out.
// The raw body is returned for storage as provider data.
func getJSON(ctx context.Context, client *http.Client, url string, out any) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body, nil
}
