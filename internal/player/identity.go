package player

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

var deviceIDPattern = regexp.MustCompile(`^tv_[0-9]+_[0-9a-z]{9}$`)

// NewDeviceID returns tv_<unix millis>_<9 base36 chars>.
func NewDeviceID(now time.Time) (string, error) {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 9)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return "tv_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix), nil
}

// ValidDeviceID reports whether id has the generated shape.
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// LoadOrCreateDeviceID returns the id stored at path, generating and saving
// one on first run. The file is locked while it is read or written so two
// players started together end up with the same id.
func LoadOrCreateDeviceID(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("lock device id file: %w", err)
	}
	defer lock.Unlock()

	if id, err := ReadDeviceID(path); err == nil {
		return id, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	id, err := NewDeviceID(time.Now())
	if err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}

// ReadDeviceID reads a stored id without creating one.
func ReadDeviceID(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", fs.ErrNotExist
	}
	return id, nil
}
