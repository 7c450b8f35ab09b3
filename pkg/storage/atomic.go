package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	errs "dailynews/pkg/errors"
)

// rename is swapped in tests to simulate a crash between write and rename.
var rename = os.Rename

// WriteJSONAtomic writes v as indented JSON to path. The data goes to a temp
// file in the same directory, is fsynced, and is then renamed over path, so
// readers see either the old file or the complete new one.
func WriteJSONAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.New(errs.ErrorTypeStorage, dir, "cannot create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.New(errs.ErrorTypeStorage, path, "cannot create temporary file", err)
	}
	tmpPath := tmp.Name()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errs.New(errs.ErrorTypeStorage, path, "cannot encode", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errs.New(errs.ErrorTypeStorage, path, "cannot sync temporary file", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.New(errs.ErrorTypeStorage, path, "cannot close temporary file", err)
	}

	if err := rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errs.New(errs.ErrorTypeStorage, path, "cannot replace file", err)
	}

	return nil
}

// ReadJSON decodes path into v. A missing file is returned as an
// os.ErrNotExist error and a corrupt one as errs.ErrParsing, so callers can
// tell the two apart.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.New(errs.ErrorTypeParsing, path, "cannot decode", err)
	}
	return nil
}
