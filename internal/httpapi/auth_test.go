package httpapi

import (
	"encoding/base64"
	"testing"
)

func TestBasicCredentials(t *testing.T) {
	t.Parallel()

	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:s3cret"))
	username, password, ok := basicCredentials(header)
	if !ok {
		t.Fatal("expected credentials to parse")
	}
	if username != "admin" || password != "s3cret" {
		t.Fatalf("unexpected credentials %q/%q", username, password)
	}
}

func TestBasicCredentialsPasswordWithColon(t *testing.T) {
	t.Parallel()

	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:pa:ss"))
	_, password, ok := basicCredentials(header)
	if !ok || password != "pa:ss" {
		t.Fatalf("expected colon to split on first occurrence only, got %q ok=%v", password, ok)
	}
}

func TestBasicCredentialsRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"wrong scheme", "Bearer abc"},
		{"bad base64", "Basic %%%"},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("adminonly"))},
		{"empty username", "Basic " + base64.StdEncoding.EncodeToString([]byte(":pw"))},
	}
	for _, tc := range cases {
		if _, _, ok := basicCredentials(tc.header); ok {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}
