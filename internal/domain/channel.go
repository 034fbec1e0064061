package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugPattern      = regexp.MustCompile(`^[a-z0-9_]+$`)
	nonSlugCharacter = regexp.MustCompile(`[^a-z0-9]`)
)

// ChannelInfo is the identity of a channel as shown to clients.
// Overlay state is intentionally not part of it.
type ChannelInfo struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ChannelsData is the payload of channels_data, keyed by slug.
type ChannelsData struct {
	Channels map[string]ChannelInfo `json:"channels"`
}

// ChannelStatus is the snapshot sent as channel_status.
type ChannelStatus struct {
	Channel           string      `json:"channel"`
	LowerThirdVisible bool        `json:"lower_third_visible"`
	CurrentLowerThird *LowerThird `json:"current_lower_third"`
}

// DeriveSlug lowercases name and replaces every character outside [a-z0-9] with '_'.
func DeriveSlug(name string) string {
	return nonSlugCharacter.ReplaceAllString(strings.ToLower(name), "_")
}

// ValidateSlug reports whether slug is a usable channel identifier.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q, only lowercase alphanumeric characters and underscores are allowed", ErrInvalidSlug, slug)
	}
	return nil
}

// ResolveSlug returns the slug a channel named name gets: the explicit slug if
// one was given (it must already be valid), otherwise the derived one.
func ResolveSlug(name, explicit string) (string, error) {
	slug := explicit
	if slug == "" {
		slug = DeriveSlug(name)
	}
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	return slug, nil
}
