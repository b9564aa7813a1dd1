package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestParseTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []Topic
	}{
		{
			name: "plain lines",
			in:   "database engines\nrust compilers",
			want: []Topic{"database engines", "rust compilers"},
		},
		{
			name: "list markers and whitespace",
			in:   "  - database engines  \n-   Rust compilers\n\n\t\n",
			want: []Topic{"database engines", "Rust compilers"},
		},
		{
			name: "case is preserved and repeats kept",
			in:   "Go\ngo\n- Go",
			want: []Topic{"Go", "go", "Go"},
		},
		{
			name: "dashes stripped from both ends",
			in:   "-Rust\n-- databases\n- Rust -\n---",
			want: []Topic{"Rust", "databases", "Rust"},
		},
		{
			name: "inner dashes survive",
			in:   "- real-time systems",
			want: []Topic{"real-time systems"},
		},
		{
			name: "windows line endings",
			in:   "one\r\n- two -\r\n",
			want: []Topic{"one", "two"},
		},
		{
			name: "empty",
			in:   "   \n\n",
			want: []Topic{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseTopics(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseTopics(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestArticleKeyTrimsOnly(t *testing.T) {
	t.Parallel()

	a := Article{URL: "  https://Example.com/a/  "}
	if a.Key() != "https://Example.com/a/" {
		t.Fatalf("unexpected key %q", a.Key())
	}
}

func TestFetchStatsString(t *testing.T) {
	t.Parallel()

	s := FetchStats{Source: "algolia", InWindow: 120, MeetingThreshold: 30, Returned: 25, MinEngagement: 20, Window: 24 * time.Hour}
	want := "algolia: found 120 stories in the last 24h0m0s, 30 with >= 20 comments, returning 25"
	if s.String() != want {
		t.Fatalf("got %q, want %q", s.String(), want)
	}
}
