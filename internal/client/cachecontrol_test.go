package client

import (
	"net/http"
	"testing"
	"time"
)

func TestCacheTTL(t *testing.T) {
	now := time.Date(2023, 2, 12, 2, 0, 0, 0, time.UTC)
	fallback := 2 * time.Minute

	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"no headers uses fallback", http.Header{}, fallback},
		{"max-age", http.Header{"Cache-Control": {"public, max-age=300"}}, 300 * time.Second},
		{"s-maxage wins", http.Header{"Cache-Control": {"max-age=300, s-maxage=60"}}, 60 * time.Second},
		{"age subtracted", http.Header{"Cache-Control": {"max-age=300"}, "Age": {"100"}}, 200 * time.Second},
		{"stale by age", http.Header{"Cache-Control": {"max-age=30"}, "Age": {"60"}}, -30 * time.Second},
		{"no-store", http.Header{"Cache-Control": {"no-store, max-age=300"}}, 0},
		{"no-cache", http.Header{"Cache-Control": {"no-cache"}}, 0},
		{"private", http.Header{"Cache-Control": {"private, max-age=300"}}, 0},
		{"case insensitive", http.Header{"Cache-Control": {"Max-Age=10"}}, 10 * time.Second},
		{"quoted value", http.Header{"Cache-Control": {`max-age="10"`}}, 10 * time.Second},
		{"invalid max-age", http.Header{"Cache-Control": {"max-age=soon"}}, 0},
		{"multiple header lines", http.Header{"Cache-Control": {"public", "max-age=45"}}, 45 * time.Second},
		{
			"expires relative to date",
			http.Header{
				"Date":    {now.Format(http.TimeFormat)},
				"Expires": {now.Add(90 * time.Second).Format(http.TimeFormat)},
			},
			90 * time.Second,
		},
		{"invalid expires", http.Header{"Expires": {"0"}}, 0},
		{"max-age clamped", http.Header{"Cache-Control": {"max-age=99999999999"}}, 2147483648 * time.Second},
		{"max-age past int64", http.Header{"Cache-Control": {"max-age=99999999999999999999"}}, 2147483648 * time.Second},
		{"negative max-age", http.Header{"Cache-Control": {"max-age=-5"}}, 0},
		{
			"huge age",
			http.Header{"Cache-Control": {"max-age=60"}, "Age": {"99999999999999999999"}},
			60*time.Second - 2147483648*time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheTTL(tt.header, now, fallback); got != tt.want {
				t.Errorf("CacheTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
