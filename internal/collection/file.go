package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arcanaland/grimoire/internal/card"
)

const cardExt = ".json"

// cardFileName returns "<id>.json"
func cardFileName(id int) string {
	return strconv.Itoa(id) + cardExt
}

// parseCardFileName is the inverse of cardFileName; temp files and strays
// report false.
func parseCardFileName(name string) (int, bool) {
	if !strings.HasSuffix(name, cardExt) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(name, cardExt))
	if err != nil || id < 0 || cardFileName(id) != name {
		return 0, false
	}
	return id, true
}

// readCardFile loads one card. A missing file is returned as the raw
// os error so callers can map it to ErrNotFound.
func readCardFile(path string) (card.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return card.Card{}, err
		}
		return card.Card{}, ioError("read", path, err)
	}
	var c card.Card
	if err := json.Unmarshal(data, &c); err != nil {
		return card.Card{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return c, nil
}

// writeCardFile replaces path atomically: the card is written to a temp file
// in the same directory, synced, then renamed over the target.
func writeCardFile(path string, c card.Card) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("collection: encode card: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".card-*.tmp")
	if err != nil {
		return ioError("create", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return ioError("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return ioError("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return ioError("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return ioError("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return ioError("rename", path, err)
	}
	return nil
}

// statFile reports whether path exists; only existence-unrelated failures
// are errors.
func statFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, ioError("stat", path, err)
}
