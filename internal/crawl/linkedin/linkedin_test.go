package linkedin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/domain"
)

const guestCards = `
<li>
  <div class="base-card job-search-card" data-entity-urn="urn:li:jobPosting:3901234567">
    <a class="base-card__full-link" href="https://fr.linkedin.com/jobs/view/backend-engineer-at-acme-3901234567?refId=abc&trackingId=xyz"></a>
    <h3 class="base-search-card__title"> Backend Engineer </h3>
    <h4 class="base-search-card__subtitle"><a>Acme</a></h4>
    <span class="job-search-card__location">Tunis, Tunisia</span>
    <time class="job-search-card__listdate" datetime="2024-05-18">2 days ago</time>
  </div>
</li>
<li>
  <div class="base-card job-search-card" data-entity-urn="urn:li:jobPosting:3907654321">
    <a class="base-card__full-link" href="/jobs/view/3907654321/"></a>
    <h3 class="base-search-card__title">Python Developer</h3>
    <h4 class="base-search-card__subtitle">Globex</h4>
    <span class="job-search-card__location">Remote</span>
    <time>1 week ago</time>
  </div>
</li>`

const postingHTML = `
<div class="show-more-less-html__markup">We build <b>python</b> backend services.</div>
<span class="num-applicants__caption">Over 200 applicants</span>
<ul>
  <li class="description__job-criteria-item"><h3>Seniority level</h3><span>Mid-Senior level</span></li>
  <li class="description__job-criteria-item"><h3>Employment type</h3><span>Full-time</span></li>
  <li class="description__job-criteria-item"><h3>Job function</h3><span>Engineering</span></li>
  <li class="description__job-criteria-item"><h3>Industries</h3><span>Software Development</span></li>
</ul>`

func TestParseSearchCardsGuest(t *testing.T) {
	recs, err := ParseSearchCards(strings.NewReader(guestCards), GuestSelectors())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "3901234567", r.SourceID)
	assert.Equal(t, "Backend Engineer", r.Title)
	assert.Equal(t, "Acme", r.Company)
	assert.Equal(t, "Tunis, Tunisia", r.Location)
	assert.Equal(t, "2024-05-18", r.PostedAt)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/3901234567/", r.URL)

	assert.Equal(t, "1 week ago", recs[1].PostedAt)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/3907654321/", recs[1].URL)
}

func TestParseSearchCardsLoggedIn(t *testing.T) {
	html := `<ul>
<li data-job-id="4012345678">
  <a class="job-card-list__title" href="/jobs/view/4012345678/?trk=x">Data Engineer</a>
  <div class="artdeco-entity-lockup__subtitle">Initech</div>
  <ul><li class="job-card-container__metadata-item">Paris (Hybrid)</li></ul>
  <time datetime="2024-05-19"></time>
</li>
<li data-job-id="4012345678"><a class="job-card-list__title">dup</a></li>
</ul>`
	recs, err := ParseSearchCards(strings.NewReader(html), DefaultSelectors())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Data Engineer", recs[0].Title)
	assert.Equal(t, "Initech", recs[0].Company)
	assert.Equal(t, "Paris (Hybrid)", recs[0].Location)
}

func TestParsePosting(t *testing.T) {
	d, err := ParsePosting(strings.NewReader(postingHTML), GuestSelectors())
	require.NoError(t, err)
	assert.Equal(t, "We build python backend services.", d.Description)
	assert.Equal(t, "Mid-Senior level", d.Seniority)
	assert.Equal(t, "Full-time", d.EmploymentType)
	assert.Equal(t, "Engineering", d.Function)
	assert.Equal(t, "Software Development", d.Industries)

	var rec domain.RawRecord
	d.Apply(&rec)
	assert.Equal(t, "Over 200 applicants", rec.ApplicantCount)
}

func TestLoadSelectorsOverlay(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "selectors.yml")
	require.NoError(t, os.WriteFile(yml, []byte("title: \".new-title\"\nlogin_wall: \"\"\n"), 0o600))
	sel, err := LoadSelectors(yml, DefaultSelectors())
	require.NoError(t, err)
	assert.Equal(t, ".new-title", sel.Title)
	assert.Equal(t, DefaultSelectors().LoginWall, sel.LoginWall)
	assert.Equal(t, "[data-job-id]", sel.JobCardContainer)

	js := filepath.Join(dir, "selectors.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"job_card_container": "li.card"}`), 0o600))
	sel, err = LoadSelectors(js, GuestSelectors())
	require.NoError(t, err)
	assert.Equal(t, "li.card", sel.JobCardContainer)

	sel, err = LoadSelectors(filepath.Join(dir, "missing.yml"), GuestSelectors())
	require.NoError(t, err)
	assert.Equal(t, GuestSelectors(), sel)
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	cookies := filepath.Join(dir, "cookies.json")
	ls := filepath.Join(dir, "ls.json")
	require.NoError(t, os.WriteFile(cookies, []byte(`[{"name":"li_at","value":"tok","domain":".linkedin.com","path":"/","secure":true,"sameSite":"None"}]`), 0o600))
	require.NoError(t, os.WriteFile(ls, []byte(`{"voyager":"1"}`), 0o600))

	creds, err := LoadCredentials(cookies, ls)
	require.NoError(t, err)
	require.Len(t, creds.Cookies, 1)
	assert.Equal(t, "li_at", creds.Cookies[0].Name)
	assert.Equal(t, "1", creds.LocalStorage["voyager"])

	oc := toPlaywright(creds.Cookies[0])
	require.NotNil(t, oc.Domain)
	assert.Equal(t, ".linkedin.com", *oc.Domain)
	assert.True(t, *oc.Secure)

	empty, err := LoadCredentials(filepath.Join(dir, "nope.json"), "")
	require.NoError(t, err)
	assert.Empty(t, empty.Cookies)
}

func guestServer(t *testing.T, search http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(guestSearch, search)
	mux.HandleFunc(guestPosting, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(postingHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fetch(t *testing.T, s *GuestSession, page int) (crawl.Page, error) {
	t.Helper()
	h, err := s.Open(context.Background(), crawl.Credentials{})
	require.NoError(t, err)
	defer h.Close()
	q := domain.SearchQuery{Text: `("python") AND "Tunisia"`, GeoID: "102134353"}
	return s.FetchPage(context.Background(), h, q, page)
}

func TestGuestFetchPage(t *testing.T) {
	var gotStart, gotGeo string
	srv := guestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		gotGeo = r.URL.Query().Get("geoId")
		_, _ = w.Write([]byte(guestCards))
	})

	s := NewGuest(GuestOptions{BaseURL: srv.URL, FetchDetails: true})
	p, err := fetch(t, s, 2)
	require.NoError(t, err)
	assert.False(t, p.Last)
	require.Len(t, p.Records, 2)
	assert.Equal(t, "20", gotStart)
	assert.Equal(t, "102134353", gotGeo)
	assert.Equal(t, "Full-time", p.Records[0].EmploymentType)
	assert.Contains(t, p.Records[0].Description, "python")
}

func TestGuestFetchPageOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		last    bool
		kind    crawl.Kind
	}{
		{
			name:    "empty body ends results",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			last:    true,
		},
		{
			name:    "400 past the end",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			last:    true,
		},
		{
			name:    "999 is blocked",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(999) },
			kind:    crawl.KindBlocked,
		},
		{
			name:    "503 is transient",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			kind:    crawl.KindTransient,
		},
		{
			name: "login wall",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<form class="join-form"><input name="session_key"></form>`))
			},
			kind: crawl.KindSessionExpired,
		},
		{
			name: "markup changed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<li><div class="job-card-v2"><h3>Backend</h3></div></li>`))
			},
			kind: crawl.KindSelectorMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := guestServer(t, tt.handler)
			p, err := fetch(t, NewGuest(GuestOptions{BaseURL: srv.URL}), 0)
			if tt.kind == crawl.KindNone {
				require.NoError(t, err)
				assert.Equal(t, tt.last, p.Last)
				assert.Empty(t, p.Records)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, crawl.KindOf(err))
		})
	}
}

func TestGuestAuthwallRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(guestSearch, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/authwall?trk=x", http.StatusFound)
	})
	mux.HandleFunc("/authwall", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Sign in</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := fetch(t, NewGuest(GuestOptions{BaseURL: srv.URL}), 0)
	require.ErrorIs(t, err, crawl.ErrSessionExpired)
}
