package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{" EN_us ", "en-us"},
		{"zh-Hans", "zh-hans"},
		{"en--US", "en-us"},
		{"iw", "he"},
		{"in-ID", "id-id"},
		{"en_123", ""},
		{"  ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTag(tc.raw); got != tc.want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	if got := NormalizeCode(" EN-us "); got != "en" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode("zh"); got != "zh" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode("ji-Latn"); got != "yi" {
		t.Fatalf("expected legacy code rewrite, got %q", got)
	}
	if got := NormalizeCode(" "); got != "" {
		t.Fatalf("expected empty code for blank input, got %q", got)
	}
}
