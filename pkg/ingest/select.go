package ingest

import (
	"strings"

	"followsync/pkg/canonical"
	"followsync/pkg/models"
	"followsync/pkg/store"
)

// ImageIssue is a stored asset URL that needs a refetch
type ImageIssue struct {
	AccountID models.AccountID
	Field     string
	Reason    string
}

// Missing returns ids without a stored record, in input order
func Missing(ids []models.AccountID, results *store.Results) []models.AccountID {
	out := make([]models.AccountID, 0, len(ids))
	for _, id := range ids {
		if !results.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// ImageIssues checks the stored asset URLs of every input id that has a
// record. Fields flagged unset by the mirror are not reported.
func ImageIssues(ids []models.AccountID, results *store.Results, canon *canonical.Canonicalizer) []ImageIssue {
	var issues []ImageIssue
	for _, id := range ids {
		rec := results.Get(id)
		if rec == nil {
			continue
		}
		if !rec.AvatarUnset {
			if reason := checkURL(rec.ProfilePic, canon); reason != "" {
				issues = append(issues, ImageIssue{AccountID: id, Field: "profile_pic", Reason: reason})
			}
		}
		if !rec.BannerUnset {
			if reason := checkURL(rec.ProfileBanner, canon); reason != "" {
				issues = append(issues, ImageIssue{AccountID: id, Field: "profile_banner", Reason: reason})
			}
		}
	}
	return issues
}

// checkURL returns why u is unusable, or "" when it is fine
func checkURL(u *string, canon *canonical.Canonicalizer) string {
	if u == nil || *u == "" {
		return "missing"
	}
	s := *u
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
		return "malformed"
	}
	if strings.Contains(s, canon.Marker()) {
		return "malformed"
	}
	if canon.Repair(s) != s {
		return "malformed"
	}
	return ""
}

// WorkSet returns the ids a fetching mode will visit, in input order
func WorkSet(mode Mode, ids []models.AccountID, results *store.Results, canon *canonical.Canonicalizer) []models.AccountID {
	switch mode {
	case ModeForce:
		out := make([]models.AccountID, len(ids))
		copy(out, ids)
		return out
	case ModeFetchMissingImages:
		seen := make(map[models.AccountID]struct{})
		var out []models.AccountID
		for _, issue := range ImageIssues(ids, results, canon) {
			if _, ok := seen[issue.AccountID]; ok {
				continue
			}
			seen[issue.AccountID] = struct{}{}
			out = append(out, issue.AccountID)
		}
		return out
	default:
		return Missing(ids, results)
	}
}
