package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "developpeur backend", Fold("  Développeur   BACKEND "))
	assert.Equal(t, []string{"ingenieur", "data", "h", "f"}, Tokens("Ingénieur Data (H/F)"))
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.linkedin.com/jobs/view/123456/?trk=abc&refId=x", "https://www.linkedin.com/jobs/view/123456/"},
		{"https://fr.linkedin.com/jobs/view/backend-dev-at-acme-123456?position=1", "https://www.linkedin.com/jobs/view/123456/"},
		{"https://www.linkedin.com/jobs/view/a-0/", "https://www.linkedin.com/jobs/view/a-0/"},
		{"https://www.linkedin.com/jobs/view/engineer-level-2/?trk=x", "https://www.linkedin.com/jobs/view/engineer-level-2/"},
		{"HTTPS://Example.com/job?utm_source=x&b=2&a=1#frag", "https://example.com/job?a=1&b=2"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalURL(tt.in))
		})
	}
}

func TestLinkedInJobID(t *testing.T) {
	assert.Equal(t, "3901234567", LinkedInJobID("/jobs/view/backend-engineer-at-acme-3901234567/"))
	assert.Equal(t, "3901234567", LinkedInJobID("https://www.linkedin.com/comm/jobs/view/3901234567?trk=x"))
	assert.Empty(t, LinkedInJobID("/jobs/view/engineer-level-2/"))
	assert.Empty(t, LinkedInJobID("/jobs/view/a-0/"))
	assert.Empty(t, LinkedInJobID("/jobs/view/123456abc/"))
}

func TestParsePostedAt(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"7 hours ago", now.Add(-7 * time.Hour), true},
		{"3 days ago", now.AddDate(0, 0, -3), true},
		{"2 weeks ago", now.AddDate(0, 0, -14), true},
		{"il y a 1 mois", now.AddDate(0, -1, 0), true},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"Reposted", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePostedAt(tt.in, now)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestNormalizeLocationAndWorkMode(t *testing.T) {
	assert.Equal(t, "Paris, France", NormalizeLocation("Location: Paris ,  France, paris"))
	assert.Equal(t, "Remote", InferWorkMode("France (Remote)", "", ""))
	assert.Equal(t, "Hybrid", InferWorkMode("Lyon", "Dev (hybrid)", ""))
	assert.Equal(t, "Unknown", InferWorkMode("Lyon", "Dev", ""))
}

func TestFirstInt(t *testing.T) {
	assert.Equal(t, 42, FirstInt("42 applicants"))
	assert.Equal(t, 1200, FirstInt("Over 1,200 applicants"))
	assert.Equal(t, 0, FirstInt("Be among the first"))
}
