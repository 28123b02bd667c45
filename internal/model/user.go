package model

import (
	"strings"
	"time"
)

type AuthUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

// Session is the token bundle issued by the auth provider.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         AuthUser `json:"user"`
}

// Expired reports whether the access token is past, or within leeway of,
// its expiry. A session without an expiry never expires.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Add(leeway).Unix() >= s.ExpiresAt
}

type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// ProfilePatch is a partial profile update. A non-nil pointer to "" clears
// the field.
type ProfilePatch struct {
	FullName  *string `json:"full_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

func (p ProfilePatch) Apply(u *UserProfile) []string {
	var cols []string
	if p.FullName != nil {
		u.FullName = *p.FullName
		cols = append(cols, "full_name")
	}
	if p.Username != nil {
		u.Username = *p.Username
		cols = append(cols, "username")
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
		cols = append(cols, "avatar_url")
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
		cols = append(cols, "phone")
	}
	if p.Address != nil {
		u.Address = *p.Address
		cols = append(cols, "address")
	}
	return cols
}

// IsAdminUser grants admin access by flag, falling back to an email suffix.
func IsAdminUser(u *UserProfile, adminSuffix string) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	return adminSuffix != "" && strings.HasSuffix(strings.ToLower(u.Email), strings.ToLower(adminSuffix))
}
