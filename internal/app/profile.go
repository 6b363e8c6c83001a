package app

import (
	"fmt"
	"strings"
	"time"

	"noted/pkg/domain"
)

// GetProfile returns the user's seller profile.
func (a *App) GetProfile(user domain.User) (domain.Profile, error) {
	profile, ok, err := a.store.GetProfile(user.ID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !ok {
		return domain.Profile{}, ErrProfileNotFound
	}
	return profile, nil
}

// SaveProfile creates or updates the user's profile. Display name is
// required and the major must come from the known list.
func (a *App) SaveProfile(user domain.User, displayName, major string) (domain.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.Profile{}, ErrDisplayNameRequired
	}
	major = strings.TrimSpace(major)
	if !domain.ValidMajor(major) {
		return domain.Profile{}, ErrInvalidMajor
	}
	now := time.Now().UTC()
	profile := domain.Profile{
		UserID:      user.ID,
		DisplayName: displayName,
		Major:       major,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing, ok, err := a.store.GetProfile(user.ID); err != nil {
		return domain.Profile{}, fmt.Errorf("fetch profile: %w", err)
	} else if ok {
		profile.CreatedAt = existing.CreatedAt
	}
	if err := a.store.SaveProfile(profile); err != nil {
		return domain.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// displayNameFor resolves the public name shown on notes, reviews and
// replies: the profile display name when set, otherwise the email local part.
func (a *App) displayNameFor(user domain.User) string {
	profile, ok, err := a.store.GetProfile(user.ID)
	if err == nil && ok && strings.TrimSpace(profile.DisplayName) != "" {
		return profile.DisplayName
	}
	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}
	return user.Email
}
