package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"authcore/internal/auth"
	"authcore/internal/model"
	"authcore/internal/provider"
)

// UserView is the public shape of a signed-in user.
type UserView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Image string    `json:"image,omitempty"`
	Roles []string  `json:"roles"`
}

func newUserView(u *model.User) UserView {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.AvatarURL, Roles: roles}
}

// ProviderStatus is a provider entry of the auth status.
type ProviderStatus struct {
	Name        provider.Type `json:"name"`
	DisplayName string        `json:"displayName"`
	IsActive    bool          `json:"isActive"`
}

// AuthStatus tells a client whether its credential is valid and how it may sign in.
type AuthStatus struct {
	IsAuthenticated    bool             `json:"isAuthenticated"`
	User               *UserView        `json:"user,omitempty"`
	AvailableProviders []ProviderStatus `json:"availableProviders"`
}

func newAuthStatus(ac *auth.Context, providers *provider.Registry) AuthStatus {
	infos := providers.List()
	status := AuthStatus{AvailableProviders: make([]ProviderStatus, 0, len(infos))}
	for _, info := range infos {
		status.AvailableProviders = append(status.AvailableProviders, ProviderStatus{
			Name:        info.Name,
			DisplayName: info.DisplayName,
			IsActive:    info.IsActive,
		})
	}
	if ac != nil && ac.User != nil {
		view := newUserView(ac.User)
		status.IsAuthenticated = true
		status.User = &view
	}
	return status
}

// ProfileView is the caller's profile with the providers linked to it.
type ProfileView struct {
	User      ProfileUser      `json:"user"`
	Providers []LinkedProvider `json:"providers"`
}

// ProfileUser is the user part of ProfileView.
type ProfileUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LinkedProvider is one provider identity of ProfileView. Provider is upper case.
type LinkedProvider struct {
	Provider   string    `json:"provider"`
	ProviderID string    `json:"providerId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newProfileView(u *model.User) ProfileView {
	view := ProfileView{
		User: ProfileUser{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Image:     u.AvatarURL,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
		Providers: make([]LinkedProvider, 0, len(u.Accounts)),
	}
	for _, a := range u.Accounts {
		view.Providers = append(view.Providers, LinkedProvider{
			Provider:   strings.ToUpper(a.Provider),
			ProviderID: a.ProviderAccountID,
			CreatedAt:  a.CreatedAt,
		})
	}
	return view
}

// SessionView describes one issued token without the credential itself.
type SessionView struct {
	ID         uuid.UUID       `json:"id"`
	Type       model.TokenType `json:"type"`
	CreatedAt  time.Time       `json:"createdAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	LastUsedAt *time.Time      `json:"lastUsedAt"`
	IsActive   bool            `json:"isActive"`
	IsCurrent  bool            `json:"isCurrent"`
	UserAgent  string          `json:"userAgent,omitempty"`
	IPAddress  string          `json:"ipAddress,omitempty"`
}

// SessionList is the output of getUserTokens.
type SessionList struct {
	Tokens     []SessionView `json:"tokens"`
	TotalCount int           `json:"totalCount"`
}

func newSessionList(tokens []model.Token, currentID uuid.UUID) SessionList {
	list := SessionList{Tokens: make([]SessionView, 0, len(tokens)), TotalCount: len(tokens)}
	for _, t := range tokens {
		list.Tokens = append(list.Tokens, SessionView{
			ID:         t.ID,
			Type:       t.Type,
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
			LastUsedAt: t.LastUsedAt,
			IsActive:   t.IsActive,
			IsCurrent:  t.ID == currentID,
			UserAgent:  t.UserAgent,
			IPAddress:  t.IPAddress,
		})
	}
	return list
}

// AccountView describes a linked account. Token material is reduced to presence flags.
type AccountView struct {
	ID                uuid.UUID  `json:"id"`
	Provider          string     `json:"provider"`
	ProviderAccountID string     `json:"providerAccountId"`
	LastUsed          time.Time  `json:"lastUsed"`
	CreatedAt         time.Time  `json:"createdAt"`
	HasAccessToken    bool       `json:"hasAccessToken"`
	HasRefreshToken   bool       `json:"hasRefreshToken"`
	TokenExpiresAt    *time.Time `json:"tokenExpiresAt"`
}

func newAccountViews(accounts []model.Account) []AccountView {
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountView{
			ID:                a.ID,
			Provider:          a.Provider,
			ProviderAccountID: a.ProviderAccountID,
			LastUsed:          a.LastUsedAt,
			CreatedAt:         a.CreatedAt,
			HasAccessToken:    a.AccessToken != nil && *a.AccessToken != "",
			HasRefreshToken:   a.RefreshToken != nil && *a.RefreshToken != "",
			TokenExpiresAt:    a.ExpiresAt,
		})
	}
	return out
}

// UserListItem is one row of the admin user listing.
type UserListItem struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Image         string    `json:"image,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	AccountsCount int64     `json:"accountsCount"`
	TokensCount   int64     `json:"tokensCount"`
	Roles         []string  `json:"roles"`
}

// UserList is the output of getAllUsers.
type UserList struct {
	Users       []UserListItem `json:"users"`
	TotalCount  int64          `json:"totalCount"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// OperationResult reports the outcome of a state changing procedure.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RevokeAllResult is the output of revokeAllTokens.
type RevokeAllResult struct {
	OperationResult
	RevokedCount int64 `json:"revokedCount"`
}

// CleanupResult is the output of cleanupExpiredTokens.
type CleanupResult struct {
	OperationResult
	CleanedCount int64 `json:"cleanedCount"`
}
