package mirror

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followsync/pkg/canonical"
	errs "followsync/pkg/errors"
	"followsync/pkg/logger"
	"followsync/pkg/models"
)

const profilePage = `<html><body>
<div class="profile-banner"><a href="/pic/banner"><img src="/pic/pbs.example.com%%2Fprofile_banners%%2F%[1]s%%2F1500x500"></a></div>
<div class="profile-card">
  <a class="profile-card-avatar" href="/pic/x"><img src="/pic/pbs.example.com%%2Fprofile_images%%2F%[1]s%%2Fphoto_400x400.jpg"></a>
  <a class="profile-card-fullname" href="/u">  Name %[1]s  </a>
  <a class="profile-card-username" href="/u">@user_%[1]s</a>
  <div class="profile-bio"><p>bio &amp; more</p></div>
  <div class="profile-location"><span class="icon"></span><span> Tokyo </span></div>
  <div class="profile-joindate"><span title="x">Joined March 2010</span></div>
</div>
</body></html>`

func pageFor(id string) string {
	return fmt.Sprintf(profilePage, id)
}

func testCanonicalizer() *canonical.Canonicalizer {
	return canonical.New("/pic/", "pbs.example.com", "abs.example.com")
}

func newTestClient(t *testing.T, log logger.Logger, mirrors ...string) *Client {
	t.Helper()
	c := NewClient(Options{
		Mirrors:       mirrors,
		Timeout:       5 * time.Second,
		UserAgent:     "followsync-test",
		BannerDefault: "background-color",
	}, testCanonicalizer(), log)
	c.now = func() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, models.JST) }
	return c
}

// hitCounter records which paths a test server was asked for
type hitCounter struct {
	mu   sync.Mutex
	hits []string
}

func (h *hitCounter) add(p string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits = append(h.hits, p)
}

func (h *hitCounter) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hits)
}

func mirrorServer(t *testing.T, hits *hitCounter, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.add(r.URL.Path)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func servePage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/i/user/")
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, pageFor(id))
}

func TestFetchProfileParsesCard(t *testing.T) {
	srv := mirrorServer(t, nil, servePage)
	c := newTestClient(t, logger.NewNopLogger(), srv.URL)

	rec, err := c.FetchProfile(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", rec.AccountID)
	assert.Equal(t, "user_42", models.Value(rec.ScreenName))
	assert.Equal(t, "Name 42", models.Value(rec.DisplayName))
	assert.Equal(t, "bio & more", models.Value(rec.Bio))
	assert.Equal(t, "Tokyo", models.Value(rec.Location))
	assert.Equal(t, "Joined March 2010", models.Value(rec.Joined))

	assert.Equal(t, srv.URL+"/pic/pbs.example.com%2Fprofile_images%2F42%2Fphoto_400x400.jpg", models.Value(rec.ProfilePicRef))
	assert.Equal(t, "https://pbs.example.com/profile_images/42/photo_400x400.jpg", models.Value(rec.ProfilePic))
	assert.Equal(t, "https://pbs.example.com/profile_banners/42/1500x500", models.Value(rec.ProfileBanner))
	assert.False(t, rec.AvatarUnset)
	assert.False(t, rec.BannerUnset)

	assert.Equal(t, srv.URL, rec.FetchedFrom)
	assert.Equal(t, "2026-10-14T09:30:00+09:00", rec.FetchedAt.Format(time.RFC3339))
}

func TestFetchProfileSendsHeaders(t *testing.T) {
	var got http.Header
	srv := mirrorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		servePage(w, r)
	})
	c := newTestClient(t, logger.NewNopLogger(), srv.URL)

	_, err := c.FetchProfile(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "followsync-test", got.Get("User-Agent"))
	assert.Contains(t, got.Get("Accept-Encoding"), "zstd")
}

func TestFetchProfileFailover(t *testing.T) {
	// mirror 1 cannot serve B; mirror 2 serves everything
	hits1, hits2 := &hitCounter{}, &hitCounter{}
	m1 := mirrorServer(t, hits1, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/B") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		servePage(w, r)
	})
	m2 := mirrorServer(t, hits2, servePage)

	log := logger.NewTestLogger()
	c := newTestClient(t, log, m1.URL, m2.URL)

	for _, id := range []string{"A", "B", "C"} {
		rec, err := c.FetchProfile(context.Background(), id)
		require.NoError(t, err, id)
		if id == "B" {
			assert.Equal(t, m2.URL, rec.FetchedFrom)
		} else {
			assert.Equal(t, m1.URL, rec.FetchedFrom)
		}
	}

	assert.Equal(t, 3, hits1.count())
	assert.Equal(t, 1, hits2.count(), "mirror 2 is only contacted after mirror 1 fails")
	assert.True(t, log.HasMessage("Mirror attempt failed"))
}

func TestFetchProfileAllMirrorsFail(t *testing.T) {
	m1 := mirrorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	m2 := mirrorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(t, logger.NewNopLogger(), m1.URL, m2.URL)

	rec, err := c.FetchProfile(context.Background(), "X")
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAllMirrorsFailed))
	assert.True(t, errs.Is(err, errs.ErrorTypeRateLimit), "last mirror error is kept")
}

func TestFetchProfileTransportError(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	live := mirrorServer(t, nil, servePage)
	c := newTestClient(t, logger.NewNopLogger(), deadURL, live.URL)

	rec, err := c.FetchProfile(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, live.URL, rec.FetchedFrom)
}

func TestFetchProfileNoMirrors(t *testing.T) {
	c := newTestClient(t, logger.NewNopLogger())

	_, err := c.FetchProfile(context.Background(), "1")
	assert.True(t, errs.Is(err, errs.ErrorTypeAllMirrorsFailed))
}

func TestFetchProfileDecodesEncodings(t *testing.T) {
	encoders := map[string]func([]byte) []byte{
		"gzip": func(b []byte) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			w.Write(b)
			w.Close()
			return buf.Bytes()
		},
		"br": func(b []byte) []byte {
			var buf bytes.Buffer
			w := brotli.NewWriter(&buf)
			w.Write(b)
			w.Close()
			return buf.Bytes()
		},
		"zstd": func(b []byte) []byte {
			enc, _ := zstd.NewWriter(nil)
			defer enc.Close()
			return enc.EncodeAll(b, nil)
		},
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			srv := mirrorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", name)
				w.Write(encode([]byte(pageFor("9"))))
			})
			c := newTestClient(t, logger.NewNopLogger(), srv.URL)

			rec, err := c.FetchProfile(context.Background(), "9")
			require.NoError(t, err)
			assert.Equal(t, "user_9", models.Value(rec.ScreenName))
		})
	}
}

func TestFetchProfileUnknownEncodingFailsOver(t *testing.T) {
	odd := mirrorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "compress")
		w.Write([]byte("???"))
	})
	live := mirrorServer(t, nil, servePage)
	c := newTestClient(t, logger.NewNopLogger(), odd.URL, live.URL)

	rec, err := c.FetchProfile(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, live.URL, rec.FetchedFrom)
}

func TestParseUnsetAssets(t *testing.T) {
	p := NewParser(testCanonicalizer(), "background-color")
	page := `<html><body>
<div class="profile-banner"><a style="background-color: #1da1f2"></a></div>
<a class="profile-card-avatar"><img src="/pic/"></a>
<a class="profile-card-username">@plain</a>
</body></html>`

	rec, err := p.Parse(strings.NewReader(page), "https://mirror.example", "5")
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example/pic/", models.Value(rec.ProfilePicRef))
	assert.Nil(t, rec.ProfilePic)
	assert.True(t, rec.AvatarUnset)

	assert.Nil(t, rec.ProfileBannerRef)
	assert.Nil(t, rec.ProfileBanner)
	assert.True(t, rec.BannerUnset)

	assert.Nil(t, rec.DisplayName)
	assert.Nil(t, rec.Bio)
}

func TestParseMissingElements(t *testing.T) {
	p := NewParser(testCanonicalizer(), "background-color")

	rec, err := p.Parse(strings.NewReader(`<html><body><div class="profile-card"></div></body></html>`), "https://m", "6")
	require.NoError(t, err)

	assert.Equal(t, "6", rec.AccountID)
	assert.Nil(t, rec.ScreenName)
	assert.Nil(t, rec.ProfilePic)
	assert.False(t, rec.AvatarUnset)
	assert.False(t, rec.BannerUnset, "no banner container means nothing is known")
}

func TestParseRejectsPageWithoutProfile(t *testing.T) {
	p := NewParser(testCanonicalizer(), "background-color")

	rec, err := p.Parse(strings.NewReader(`<html><body><p>Checking your browser...</p></body></html>`), "https://m", "6")
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}

func TestFetchProfileInterstitialFailsOver(t *testing.T) {
	gate := mirrorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>Verifying you are human</p></body></html>`)
	})
	live := mirrorServer(t, nil, servePage)
	c := newTestClient(t, logger.NewNopLogger(), gate.URL, live.URL)

	rec, err := c.FetchProfile(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, live.URL, rec.FetchedFrom)
	assert.Equal(t, "user_4", models.Value(rec.ScreenName))
}

func TestParseAvatarFallbackSelectors(t *testing.T) {
	p := NewParser(testCanonicalizer(), "background-color")
	page := `<html><body><a class="username">@fallback</a><img class="avatar" src="//cdn.example/pic/pbs.example.com%2Fa%2Fb.png?x=1"></body></html>`

	rec, err := p.Parse(strings.NewReader(page), "https://m", "8")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/pic/pbs.example.com%2Fa%2Fb.png?x=1", models.Value(rec.ProfilePicRef))
	assert.Equal(t, "https://pbs.example.com/a/b.png", models.Value(rec.ProfilePic))
}

func TestAbsolute(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"https://x/y", "https://x/y"},
		{"http://x/y", "http://x/y"},
		{"//x/y", "https://x/y"},
		{"/pic/a", "https://m/pic/a"},
		{"pic/a", "https://m/pic/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, absolute(tt.src, "https://m"), tt.src)
	}
}
