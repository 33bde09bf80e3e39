package provider

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/idtoken"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// IDTokenValidator verifies a Google ID token for the given audience.
type IDTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleConfig configures the Google provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoints    Endpoints
	// ValidateIDToken defaults to idtoken.Validate.
	ValidateIDToken IDTokenValidator
}

// GoogleProvider signs users in with Google. The identity comes from the verified
// ID token when the token response carries one, otherwise from the userinfo endpoint.
type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
	validate    IDTokenValidator
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider creates a Google provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	validate := cfg.ValidateIDToken
	if validate == nil {
		validate = idtoken.Validate
	}
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoints.oauth2(endpoints.Google),
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.Endpoints.api(defaultGoogleUserInfoURL),
		validate:    validate,
	}
}

func (p *GoogleProvider) Type() Type { return Google }

func (p *GoogleProvider) Scopes() []string { return p.conf.Scopes }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, *Tokens, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}
	tokens := TokensFromOAuth2(tok)

	if tokens.IDToken != "" {
		profile, err := p.profileFromIDToken(ctx, tokens.IDToken)
		if err != nil {
			return nil, nil, err
		}
		return profile, tokens, nil
	}

	var info googleUserInfo
	raw, err := getJSON(ctx, p.conf.Client(ctx, tok), p.userInfoURL, &info)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch user info: %w", err)
	}
	return &Profile{
		ID:        info.Sub,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
		Provider:  Google,
		Raw:       raw,
	}, tokens, nil
}

func (p *GoogleProvider) profileFromIDToken(ctx context.Context, idTok string) (*Profile, error) {
	payload, err := p.validate(ctx, idTok, p.conf.ClientID)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("email not present in id token")
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return &Profile{
		ID:        payload.Subject,
		Email:     email,
		Name:      name,
		AvatarURL: picture,
		Provider:  Google,
	}, nil
}
