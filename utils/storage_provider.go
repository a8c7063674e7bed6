package utils

import (
	"os"
	"strings"
)

const (
	StorageProviderGCS = "gcs"
	// StorageProviderURL stores document references as plain URLs; no signing.
	StorageProviderURL = "url"
)

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}
