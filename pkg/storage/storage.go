// Package storage persists the enrolled gallery between runs so
// reference images do not have to be re-encoded on every start.
// The cache can be encrypted at rest using NaCl secretbox.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/facemark/facemark/pkg/enroll"
	"github.com/facemark/facemark/pkg/logging"
)

const (
	// NonceSize is the size of the nonce used for encryption.
	NonceSize = 24
	// KeySize is the size of the encryption key.
	KeySize = 32
)

// ErrCacheMiss is returned when no cached gallery exists.
var ErrCacheMiss = errors.New("gallery cache not found")

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// galleryFile is the on-disk representation of a cached gallery.
type galleryFile struct {
	SavedAt    time.Time        `json:"saved_at"`
	Identities []enroll.Identity `json:"identities"`
}

// GalleryStore reads and writes the gallery cache file.
type GalleryStore struct {
	path              string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewGalleryStore creates a store for the given cache path. When
// encryption is enabled the key is derived from machine identity, which
// ties the cache to this host.
func NewGalleryStore(path string, encryptionEnabled bool) (*GalleryStore, error) {
	gs := &GalleryStore{
		path:              path,
		encryptionEnabled: encryptionEnabled,
	}

	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		gs.encryptionKey = key
	}

	return gs, nil
}

// deriveKey derives an encryption key from machine-specific information.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}

	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}

	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("facemark-gallery-v1")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

// Save writes the gallery to the cache file.
func (gs *GalleryStore) Save(gallery []enroll.Identity) error {
	data, err := json.MarshalIndent(galleryFile{
		SavedAt:    time.Now(),
		Identities: gallery,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal gallery: %w", err)
	}

	if gs.encryptionEnabled {
		data, err = gs.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt gallery: %w", err)
		}
	}

	if err := os.WriteFile(gs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write gallery cache: %w", err)
	}

	logging.Debugf("Saved gallery cache with %d identit(ies) to %s", len(gallery), gs.path)
	return nil
}

// Load reads the cached gallery. Returns ErrCacheMiss when the cache
// file does not exist.
func (gs *GalleryStore) Load() ([]enroll.Identity, error) {
	data, err := os.ReadFile(gs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read gallery cache: %w", err)
	}

	if gs.encryptionEnabled {
		data, err = gs.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt gallery cache: %w", err)
		}
	}

	var gf galleryFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gallery cache: %w", err)
	}

	logging.Debugf("Loaded gallery cache with %d identit(ies)", len(gf.Identities))
	return gf.Identities, nil
}

// Stale reports whether the cached gallery covers a different identity
// set than the given reference names. A missing cache is stale.
func (gs *GalleryStore) Stale(names []string) bool {
	cached, err := gs.Load()
	if err != nil {
		return true
	}
	return !sameNameSet(enroll.Names(cached), names)
}

// Remove deletes the cache file if present.
func (gs *GalleryStore) Remove() error {
	if err := os.Remove(gs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove gallery cache: %w", err)
	}
	return nil
}

func sameNameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// encrypt encrypts data using NaCl secretbox.
func (gs *GalleryStore) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &gs.encryptionKey), nil
}

// decrypt decrypts data using NaCl secretbox.
func (gs *GalleryStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &gs.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
