package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// manifestPath is the JSON array of locator strings fixed by spec §6.
func manifestPath(base string) string {
	return filepath.Join(base, "manifest.json")
}

func loadManifest(base string) ([]string, error) {
	data, err := os.ReadFile(manifestPath(base))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest: %v", ErrStorageFailed, err)
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %v", ErrStorageFailed, err)
	}
	return entries, nil
}

// writeManifest persists entries atomically: write to a temp file in the
// same directory, fsync it, then rename over the canonical path.
func writeManifest(base string, entries []string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %v", ErrStorageFailed, err)
	}
	tmp, err := os.CreateTemp(base, "manifest-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating manifest temp file: %v", ErrStorageFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing manifest: %v", ErrStorageFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: fsyncing manifest: %v", ErrStorageFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing manifest temp file: %v", ErrStorageFailed, err)
	}
	if err := os.Rename(tmp.Name(), manifestPath(base)); err != nil {
		return fmt.Errorf("%w: committing manifest: %v", ErrStorageFailed, err)
	}
	return nil
}
