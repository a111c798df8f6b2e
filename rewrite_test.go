package main

import (
	"strings"
	"testing"
)

func newDefaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(DefaultBaseURL, DefaultSubPath)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestNewMatcher_EmptyBaseURL(t *testing.T) {
	if _, err := NewMatcher("", DefaultSubPath); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestMatcherSuffixes(t *testing.T) {
	m := newDefaultMatcher(t)
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "sub-path is consumed",
			content: `<a href="https://themes.pixelwars.org/logistica/demo-01/css/style.css">`,
			want:    []string{"/css/style.css"},
		},
		{
			name:    "without sub-path",
			content: `<img src='https://themes.pixelwars.org/img/a.png'>`,
			want:    []string{"/img/a.png"},
		},
		{
			name:    "bare base URL",
			content: `<a href="https://themes.pixelwars.org">home</a>`,
			want:    []string{""},
		},
		{
			name:    "stops at whitespace",
			content: "https://themes.pixelwars.org/a.png 2x",
			want:    []string{"/a.png"},
		},
		{
			name:    "stops at angle bracket",
			content: "<p>https://themes.pixelwars.org/page</p>",
			want:    []string{"/page"},
		},
		{
			name:    "stops at unicode space",
			content: "https://themes.pixelwars.org/page\u00a0next",
			want:    []string{"/page"},
		},
		{
			name:    "case insensitive",
			content: `HTTPS://Themes.PixelWars.ORG/Logistica/Demo-01/img/X.png`,
			want:    []string{"/img/X.png"},
		},
		{
			name:    "multiple matches in order",
			content: `srcset="https://themes.pixelwars.org/a.jpg 1x, https://themes.pixelwars.org/b.jpg 2x"`,
			want:    []string{"/a.jpg", "/b.jpg"},
		},
		{
			name:    "other domain is ignored",
			content: `<a href="https://example.com/a">`,
			want:    []string{},
		},
	}
	for _, tt := range tests {
		got := m.Suffixes(tt.content)
		if len(got) != len(tt.want) {
			t.Errorf("%s: Suffixes = %q, want %q", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: Suffixes[%d] = %q, want %q", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}

func TestMatcherSuffixes_NoSubPath(t *testing.T) {
	m, err := NewMatcher("https://example.org", "")
	if err != nil {
		t.Fatal(err)
	}
	got := m.Suffixes(`href="https://example.org/logistica/demo-01/x"`)
	if len(got) != 1 || got[0] != "/logistica/demo-01/x" {
		t.Errorf("Suffixes = %q, want [\"/logistica/demo-01/x\"]", got)
	}
}

func TestRewrite(t *testing.T) {
	m := newDefaultMatcher(t)
	tests := []struct {
		name    string
		depth   int
		content string
		want    string
	}{
		{
			name:    "depth 1 with sub-path",
			depth:   1,
			content: `<a href="https://themes.pixelwars.org/logistica/demo-01/css/style.css">`,
			want:    `<a href="../css/style.css">`,
		},
		{
			name:    "depth 2 css url",
			depth:   2,
			content: `<div style="background: url(https://themes.pixelwars.org/img/bg.png)">`,
			want:    `<div style="background: url(../../img/bg.png)">`,
		},
		{
			name:    "depth 0 bare base URL",
			depth:   0,
			content: `<a href="https://themes.pixelwars.org">home</a>`,
			want:    `<a href="">home</a>`,
		},
		{
			name:    "depth 0 with path",
			depth:   0,
			content: `<link href="https://themes.pixelwars.org/logistica/demo-01/style.css">`,
			want:    `<link href="/style.css">`,
		},
		{
			name:    "depth 5 uses repeated prefix",
			depth:   5,
			content: `<script src="https://themes.pixelwars.org/js/app.js"></script>`,
			want:    `<script src="../../../../../js/app.js"></script>`,
		},
		{
			name:    "depth 1 bare base URL with trailing slash",
			depth:   1,
			content: `<a href="https://themes.pixelwars.org/logistica/demo-01/">`,
			want:    `<a href="../">`,
		},
		{
			name:    "other schemes are kept",
			depth:   1,
			content: `<a href="https://themes.pixelwars.org/a/">a</a><a href="http://example.com/b">b</a>`,
			want:    `<a href="../a/">a</a><a href="http://example.com/b">b</a>`,
		},
	}
	for _, tt := range tests {
		got, _ := m.Rewrite(tt.content, ReplacementPrefix(tt.depth))
		if got != tt.want {
			t.Errorf("%s: Rewrite = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRewrite_Count(t *testing.T) {
	m := newDefaultMatcher(t)
	content := `<a href="https://themes.pixelwars.org/a">` +
		`<img src="https://themes.pixelwars.org/logistica/demo-01/b.png">` +
		`<a href="https://example.com/c">`
	_, n := m.Rewrite(content, "../")
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestRewrite_NoMatchIsIdentical(t *testing.T) {
	m := newDefaultMatcher(t)
	content := "<html>\n<a href=\"https://example.com/page\">x</a>\n</html>\n"
	got, n := m.Rewrite(content, "../../")
	if got != content {
		t.Errorf("Rewrite = %q, want unchanged %q", got, content)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	m := newDefaultMatcher(t)
	content := `<a href="https://themes.pixelwars.org/logistica/demo-01/blog/">` +
		`<img src="https://themes.pixelwars.org//img//a.png">`
	once, _ := m.Rewrite(content, "../../")
	twice, n := m.Rewrite(once, "../../")
	if twice != once {
		t.Errorf("second pass changed content:\n once: %q\ntwice: %q", once, twice)
	}
	if n != 0 {
		t.Errorf("second pass count = %d, want 0", n)
	}
	if strings.Contains(once, "pixelwars") {
		t.Errorf("base URL remains after rewrite: %q", once)
	}
}

func TestCollapseSlashes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"http://example.com/a", "http://example.com/a"},
		{"a//b", "a/b"},
		{"a///b", "a/b"},
		{"../..//img", "../../img"},
		{"x:///y", "x://y"},
		{"x:////y", "x://y"},
		{"//cdn.example.com/lib.js", "/cdn.example.com/lib.js"},
		{"no slashes", "no slashes"},
		{"", ""},
	}
	for _, tt := range tests {
		got := CollapseSlashes(tt.in)
		if got != tt.want {
			t.Errorf("CollapseSlashes(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := CollapseSlashes(got); again != got {
			t.Errorf("CollapseSlashes not idempotent for %q: %q -> %q", tt.in, got, again)
		}
	}
}
