package provider

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	defaultDiscordAPIURL = "https://discord.com/api"
	discordCDNURL        = "https://cdn.discordapp.com"
)

// DiscordProvider signs users in with Discord.
type DiscordProvider struct {
	conf   *oauth2.Config
	apiURL string
}

var _ Provider = (*DiscordProvider)(nil)

// NewDiscordProvider creates a Discord provider.
func NewDiscordProvider(clientID, clientSecret, redirectURL string, ep Endpoints) *DiscordProvider {
	return &DiscordProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     ep.oauth2(endpoints.Discord),
			Scopes:       []string{"identify", "email"},
		},
		apiURL: strings.TrimRight(ep.api(defaultDiscordAPIURL), "/"),
	}
}

func (p *DiscordProvider) Type() Type { return Discord }

func (p *DiscordProvider) Scopes() []string { return p.conf.Scopes }

func (p *DiscordProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
	Avatar     string `json:"avatar"`
}

func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*Profile, *Tokens, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}

	var user discordUser
	raw, err := getJSON(ctx, p.conf.Client(ctx, tok), p.apiURL+"/users/@me", &user)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch user: %w", err)
	}

	email := user.Email
	if !user.Verified {
		email = ""
	}
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	var avatar string
	if user.Avatar != "" {
		avatar = fmt.Sprintf("%s/avatars/%s/%s.png", discordCDNURL, user.ID, user.Avatar)
	}
	return &Profile{
		ID:        user.ID,
		Email:     email,
		Name:      name,
		AvatarURL: avatar,
		Provider:  Discord,
		Raw:       raw,
	}, TokensFromOAuth2(tok), nil
}
