package models

import (
	"time"
)

// AccountID is the opaque identifier from the input account list
type AccountID = string

// AssetKind names one of the two per-account images
type AssetKind string

const (
	AssetProfile AssetKind = "profile"
	AssetBanner  AssetKind = "banner"
)

// AssetKinds lists every kind in processing order
var AssetKinds = []AssetKind{AssetProfile, AssetBanner}

// JST is the fixed UTC+9 zone used for fetch timestamps and version prefixes
var JST = time.FixedZone("JST", 9*60*60)

// Now returns the current time in JST truncated to whole seconds
func Now() time.Time {
	return time.Now().In(JST).Truncate(time.Second)
}

// ProfileRecord is one account fetch result, the unit of persistence.
// Optional values are pointers so that "absent" marshals as null and
// stays distinct from the explicit *Unset flags.
type ProfileRecord struct {
	AccountID   AccountID `json:"account_id"`
	ScreenName  *string   `json:"screen_name"`
	DisplayName *string   `json:"display_name"`
	Bio         *string   `json:"bio"`
	Location    *string   `json:"location"`
	Joined      *string   `json:"joined"`

	// Mirror-native references as found in markup
	ProfilePicRef    *string `json:"profile_pic_ref"`
	ProfileBannerRef *string `json:"profile_banner_ref"`

	// Canonical origin URLs
	ProfilePic    *string `json:"profile_pic"`
	ProfileBanner *string `json:"profile_banner"`

	AvatarUnset bool `json:"avatar_unset"`
	BannerUnset bool `json:"banner_unset"`

	FetchedFrom string    `json:"fetched_from"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// AssetURL returns the canonical URL stored for kind
func (r *ProfileRecord) AssetURL(kind AssetKind) *string {
	if r == nil {
		return nil
	}
	switch kind {
	case AssetProfile:
		return r.ProfilePic
	case AssetBanner:
		return r.ProfileBanner
	}
	return nil
}

// AssetRef returns the mirror reference stored for kind
func (r *ProfileRecord) AssetRef(kind AssetKind) *string {
	if r == nil {
		return nil
	}
	switch kind {
	case AssetProfile:
		return r.ProfilePicRef
	case AssetBanner:
		return r.ProfileBannerRef
	}
	return nil
}

// AssetUnset reports whether the mirror said kind has no custom asset
func (r *ProfileRecord) AssetUnset(kind AssetKind) bool {
	if r == nil {
		return false
	}
	switch kind {
	case AssetProfile:
		return r.AvatarUnset
	case AssetBanner:
		return r.BannerUnset
	}
	return false
}

// Clone returns a deep copy of the record
func (r *ProfileRecord) Clone() *ProfileRecord {
	if r == nil {
		return nil
	}
	c := *r
	for _, p := range []**string{
		&c.ScreenName, &c.DisplayName, &c.Bio, &c.Location, &c.Joined,
		&c.ProfilePicRef, &c.ProfileBannerRef, &c.ProfilePic, &c.ProfileBanner,
	} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	return &c
}

// String returns a pointer to s
func String(s string) *string {
	return &s
}

// Value dereferences p, returning "" for nil
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
