package ingest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"invoiceproc/internal/entity"
	"invoiceproc/internal/extract"
)

// ReadDump loads one OCR dump file, enforcing the producer contract before
// decoding. A dump that fails the schema is a precondition violation and is
// reported as a hard error, never a diagnostic.
func ReadDump(path string) (entity.RawExtraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.RawExtraction{}, fmt.Errorf("read dump %s: %w", path, err)
	}
	if err := extract.ValidateOCRInput(data); err != nil {
		return entity.RawExtraction{}, fmt.Errorf("dump %s: %w", path, err)
	}
	var raw entity.RawExtraction
	if err := json.Unmarshal(data, &raw); err != nil {
		return entity.RawExtraction{}, fmt.Errorf("decode dump %s: %w", path, err)
	}
	return raw, nil
}

// ScanDir returns the OCR dump files under root in sorted order, so batch
// runs over the same directory are reproducible.
func ScanDir(root string, exts map[string]struct{}) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && allowed(path, exts) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}
