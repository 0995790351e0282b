package mirror

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"followsync/pkg/canonical"
	errs "followsync/pkg/errors"
	"followsync/pkg/models"
)

// Selector groups for a Nitter-style profile card. The first match wins.
var (
	screenNameSelectors  = []string{"a.profile-card-username", "a.username"}
	displayNameSelectors = []string{"a.profile-card-fullname"}
	bioSelectors         = []string{"div.profile-bio"}
	locationSelectors    = []string{"div.profile-location span:last-child"}
	joinedSelectors      = []string{"div.profile-joindate"}
	avatarSelectors      = []string{"a.profile-card-avatar img", "img.profile-avatar", "img.avatar", "img.rounded"}
	bannerSelectors      = []string{"div.profile-banner img"}
	bannerContainer      = "div.profile-banner"
	profileCard          = ".profile-card"
)

// Parser extracts a ProfileRecord from mirror profile markup
type Parser struct {
	canon         *canonical.Canonicalizer
	bannerDefault string
}

// NewParser creates a Parser. bannerDefault is the style fragment a mirror
// puts on the banner container when the account has no banner image.
func NewParser(canon *canonical.Canonicalizer, bannerDefault string) *Parser {
	return &Parser{canon: canon, bannerDefault: bannerDefault}
}

// Parse reads a profile page served by base for account id. A page with
// neither a profile card nor a screen name is a parse error.
func (p *Parser) Parse(r io.Reader, base string, id models.AccountID) (*models.ProfileRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse profile page")
	}

	rec := &models.ProfileRecord{
		AccountID:   id,
		DisplayName: textOf(doc, displayNameSelectors),
		Bio:         textOf(doc, bioSelectors),
		Location:    textOf(doc, locationSelectors),
		Joined:      textOf(doc, joinedSelectors),
	}
	if sn := textOf(doc, screenNameSelectors); sn != nil {
		rec.ScreenName = models.String(strings.TrimPrefix(*sn, "@"))
	}
	// interstitials and error pages are served with 200 too
	if rec.ScreenName == nil && doc.Find(profileCard).Length() == 0 {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "page has no profile card")
	}

	rec.ProfilePicRef = srcOf(doc, avatarSelectors, base)
	rec.ProfileBannerRef = srcOf(doc, bannerSelectors, base)

	if rec.ProfilePicRef != nil {
		rec.ProfilePic = p.canon.ToCanonical(*rec.ProfilePicRef)
		rec.AvatarUnset = p.canon.IsBareProxy(*rec.ProfilePicRef)
	}

	if rec.ProfileBannerRef != nil {
		rec.ProfileBanner = p.canon.ToCanonical(*rec.ProfileBannerRef)
		rec.BannerUnset = p.canon.IsBareProxy(*rec.ProfileBannerRef)
	} else {
		rec.BannerUnset = p.hasDefaultBanner(doc)
	}

	return rec, nil
}

// hasDefaultBanner reports whether the banner container carries the
// placeholder background instead of an image
func (p *Parser) hasDefaultBanner(doc *goquery.Document) bool {
	if p.bannerDefault == "" {
		return false
	}
	container := doc.Find(bannerContainer).First()
	if container.Length() == 0 {
		return false
	}

	found := false
	container.Find("*").AddSelection(container).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if style, ok := s.Attr("style"); ok && strings.Contains(style, p.bannerDefault) {
			found = true
			return false
		}
		return true
	})
	return found
}

// textOf returns the trimmed text of the first matching element, or nil
// when no selector matches
func textOf(doc *goquery.Document, selectors []string) *string {
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return models.String(strings.TrimSpace(node.Text()))
		}
	}
	return nil
}

// srcOf returns the src of the first matching image that has one, made
// absolute against base
func srcOf(doc *goquery.Document, selectors []string, base string) *string {
	for _, sel := range selectors {
		var src string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr("src"); ok && strings.TrimSpace(v) != "" {
				src = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if src != "" {
			return models.String(absolute(src, base))
		}
	}
	return nil
}

func absolute(src, base string) string {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if !strings.HasPrefix(src, "/") {
		src = "/" + src
	}
	return base + src
}
