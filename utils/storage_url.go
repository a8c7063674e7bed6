package utils

import (
	"net/url"
	"os"
	"strings"
)

const (
	gcsHost      = "storage.googleapis.com"
	gcsAuthHost  = "storage.cloud.google.com"
	gcsVhostTail = "." + gcsHost
)

// DocumentAccessURL is the unsigned link for an object key: the key under
// STORAGE_ACCESS_BASE_URL, else the public GCS URL when GCS_BUCKET is set,
// else the key itself.
func DocumentAccessURL(objectKey string) string {
	escaped := escapeObjectKey(objectKey)
	if base := strings.TrimSpace(os.Getenv("STORAGE_ACCESS_BASE_URL")); base != "" {
		return strings.TrimRight(base, "/") + "/" + escaped
	}
	if bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET")); bucket != "" {
		return "https://" + gcsHost + "/" + bucket + "/" + escaped
	}
	return objectKey
}

// DocumentObjectKey resolves a stored escrow document reference to an object
// key in the configured bucket. Recognised forms:
//
//	escrows/ESC-2025-0001/purchase-agreement.pdf
//	gs://<bucket>/<key>
//	https://storage.googleapis.com/<bucket>/<key>
//	https://storage.cloud.google.com/<bucket>/<key>
//	https://<bucket>.storage.googleapis.com/<key>
//
// Anything else, including objects in another bucket, yields "".
func DocumentObjectKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	if !strings.Contains(ref, "://") {
		if strings.HasPrefix(ref, "/") || strings.ContainsAny(ref, "?#") {
			return ""
		}
		return cleanObjectKey(ref)
	}

	if rest, ok := strings.CutPrefix(ref, "gs://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		return keyInBucket(bucket, key)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	path := strings.TrimPrefix(u.Path, "/")
	switch {
	case host == gcsHost || host == gcsAuthHost:
		bucket, key, _ := strings.Cut(path, "/")
		return keyInBucket(bucket, key)
	case strings.HasSuffix(host, gcsVhostTail):
		return keyInBucket(strings.TrimSuffix(host, gcsVhostTail), path)
	}
	return ""
}

func keyInBucket(bucket string, key string) string {
	if bucket == "" {
		return ""
	}
	if configured := strings.TrimSpace(os.Getenv("GCS_BUCKET")); configured != "" && configured != bucket {
		return ""
	}
	return cleanObjectKey(key)
}

// cleanObjectKey rejects empty keys, directory keys and ".." segments.
func cleanObjectKey(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return ""
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return ""
		}
	}
	return key
}

func escapeObjectKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
