package provider

import (
	"sort"

	"authcore/internal/config"
)

// Info describes a provider for sign-in pages.
type Info struct {
	Name        Type     `json:"name"`
	DisplayName string   `json:"displayName"`
	IsActive    bool     `json:"isActive"`
	AuthURL     string   `json:"authUrl"`
	CallbackURL string   `json:"callbackUrl"`
	Scope       []string `json:"scope,omitempty"`
}

// Registry holds the configured providers.
type Registry struct {
	providers map[Type]Provider
}

// NewRegistry creates a registry of the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[Type]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	return r
}

// NewRegistryFromConfig registers every provider that has client credentials.
// Callback URLs are <BackendURL>/auth/<provider>/callback.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	var ps []Provider
	if cfg.Google.Configured() {
		ps = append(ps, NewGoogleProvider(GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  CallbackURL(cfg.BackendURL, Google),
		}))
	}
	if cfg.GitHub.Configured() {
		ps = append(ps, NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, CallbackURL(cfg.BackendURL, GitHub), Endpoints{}))
	}
	if cfg.Discord.Configured() {
		ps = append(ps, NewDiscordProvider(cfg.Discord.ClientID, cfg.Discord.ClientSecret, CallbackURL(cfg.BackendURL, Discord), Endpoints{}))
	}
	return NewRegistry(ps...)
}

// CallbackURL builds the redirect URL registered with the provider.
func CallbackURL(baseURL string, t Type) string {
	return baseURL + "/auth/" + string(t) + "/callback"
}

// Get returns the active provider named name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[Type(name)]
	return p, ok
}

// Active lists the names of registered providers, sorted.
func (r *Registry) Active() []Type {
	out := make([]Type, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// List describes every known provider type, marking which are active.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(AllTypes))
	for _, t := range AllTypes {
		info := Info{
			Name:        t,
			DisplayName: t.DisplayName(),
			AuthURL:     "/auth/" + string(t),
			CallbackURL: "/auth/" + string(t) + "/callback",
		}
		if p, ok := r.providers[t]; ok {
			info.IsActive = true
			info.Scope = p.Scopes()
		}
		out = append(out, info)
	}
	return out
}
