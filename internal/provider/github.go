package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const defaultGitHubAPIURL = "https://api.github.com"

// GitHubProvider signs users in with GitHub.
type GitHubProvider struct {
	conf   *oauth2.Config
	apiURL string
}

var _ Provider = (*GitHubProvider)(nil)

// NewGitHubProvider creates a GitHub provider.
func NewGitHubProvider(clientID, clientSecret, redirectURL string, ep Endpoints) *GitHubProvider {
	return &GitHubProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     ep.oauth2(endpoints.GitHub),
			Scopes:       []string{"read:user", "user:email"},
		},
		apiURL: strings.TrimRight(ep.api(defaultGitHubAPIURL), "/"),
	}
}

func (p *GitHubProvider) Type() Type { return GitHub }

func (p *GitHubProvider) Scopes() []string { return p.conf.Scopes }

func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Profile, *Tokens, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}
	client := p.conf.Client(ctx, tok)

	var user githubUser
	raw, err := getJSON(ctx, client, p.apiURL+"/user", &user)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch user: %w", err)
	}

	// The profile email is empty when the user keeps it private.
	email := user.Email
	if email == "" {
		var emails []githubEmail
		if _, err := getJSON(ctx, client, p.apiURL+"/user/emails", &emails); err != nil {
			return nil, nil, fmt.Errorf("fetch emails: %w", err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &Profile{
		ID:        strconv.FormatInt(user.ID, 10),
		Email:     email,
		Name:      name,
		AvatarURL: user.AvatarURL,
		Provider:  GitHub,
		Raw:       raw,
	}, TokensFromOAuth2(tok), nil
}
