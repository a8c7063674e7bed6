package utils

import (
	"context"
	"testing"
)

func TestDocumentObjectKey(t *testing.T) {
	cases := []struct {
		name   string
		bucket string
		ref    string
		want   string
	}{
		{name: "raw key", ref: "escrows/ESC-2025-0001/purchase-agreement.pdf", want: "escrows/ESC-2025-0001/purchase-agreement.pdf"},
		{name: "raw key without folder", ref: "deed.pdf", want: "deed.pdf"},
		{name: "raw key with traversal", ref: "escrows/../secrets.pdf", want: ""},
		{name: "absolute path", ref: "/escrows/deed.pdf", want: ""},
		{name: "gs url", ref: "gs://broker-docs/escrows/ESC-2025-0001/deed.pdf", want: "escrows/ESC-2025-0001/deed.pdf"},
		{name: "gs url without key", ref: "gs://broker-docs", want: ""},
		{name: "path style", ref: "https://storage.googleapis.com/broker-docs/escrows/ESC-2025-0001/deed.pdf", want: "escrows/ESC-2025-0001/deed.pdf"},
		{name: "path style escaped", ref: "https://storage.googleapis.com/broker-docs/escrows/Grant%20Deed.pdf", want: "escrows/Grant Deed.pdf"},
		{name: "authenticated host", ref: "https://storage.cloud.google.com/broker-docs/escrows/deed.pdf", want: "escrows/deed.pdf"},
		{name: "virtual host", ref: "https://broker-docs.storage.googleapis.com/escrows/deed.pdf", want: "escrows/deed.pdf"},
		{name: "virtual host without key", ref: "https://broker-docs.storage.googleapis.com/", want: ""},
		{name: "configured bucket matches", bucket: "broker-docs", ref: "gs://broker-docs/escrows/deed.pdf", want: "escrows/deed.pdf"},
		{name: "other bucket", bucket: "broker-docs", ref: "https://storage.googleapis.com/someone-else/escrows/deed.pdf", want: ""},
		{name: "e-signature link with key param", ref: "https://esign.example.test/envelope/123?key=abc", want: ""},
		{name: "e-signature link", ref: "https://esign.example.test/envelope/123", want: ""},
		{name: "relative with query", ref: "envelope/123?key=abc", want: ""},
		{name: "other scheme", ref: "ftp://storage.googleapis.com/broker-docs/deed.pdf", want: ""},
		{name: "empty", ref: "  ", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GCS_BUCKET", tc.bucket)
			if got := DocumentObjectKey(tc.ref); got != tc.want {
				t.Fatalf("DocumentObjectKey(%q) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}
}

func TestDocumentAccessURL(t *testing.T) {
	cases := []struct {
		name   string
		base   string
		bucket string
		key    string
		want   string
	}{
		{name: "base url", base: "https://files.example.test/", key: "escrows/Grant Deed.pdf", want: "https://files.example.test/escrows/Grant%20Deed.pdf"},
		{name: "public bucket", bucket: "broker-docs", key: "escrows/deed.pdf", want: "https://storage.googleapis.com/broker-docs/escrows/deed.pdf"},
		{name: "no config", key: "escrows/deed.pdf", want: "escrows/deed.pdf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("STORAGE_ACCESS_BASE_URL", tc.base)
			t.Setenv("GCS_BUCKET", tc.bucket)
			if got := DocumentAccessURL(tc.key); got != tc.want {
				t.Fatalf("DocumentAccessURL(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestDocumentDownloadURL_ExternalLinksPassThrough(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", StorageProviderGCS)
	t.Setenv("GCS_BUCKET", "broker-docs")
	t.Setenv("STORAGE_ACCESS_BASE_URL", "")

	link := "https://esign.example.test/envelope/123?key=abc"
	got, err := DocumentDownloadURL(context.Background(), link)
	if err != nil {
		t.Fatalf("DocumentDownloadURL: %v", err)
	}
	if got != link {
		t.Fatalf("external link = %q, want it unchanged", got)
	}

	// url provider never signs
	t.Setenv("STORAGE_PROVIDER", StorageProviderURL)
	got, err = DocumentDownloadURL(context.Background(), "gs://broker-docs/escrows/deed.pdf")
	if err != nil {
		t.Fatalf("DocumentDownloadURL: %v", err)
	}
	if got != "https://storage.googleapis.com/broker-docs/escrows/deed.pdf" {
		t.Fatalf("access url = %q", got)
	}
}
