package app

import "testing"

func TestNormalizeLanguageFlag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{" EN ", "en"},
		{"zh-cn", "zh-cn"},
		{"en_US", "en-us"},
		{"auto", "auto"},
		{"", ""},
		{"e", ""},
		{"english!", ""},
		{"toolonglang", ""},
	}
	for _, tc := range cases {
		if got := normalizeLanguageFlag(tc.raw); got != tc.want {
			t.Errorf("normalizeLanguageFlag(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRunNoArgs(t *testing.T) {
	t.Parallel()

	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}
