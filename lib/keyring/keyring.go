/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package keyring inspects OpenPGP keyring files without shelling out to
// gpg. Both binary and ASCII-armored keyrings are accepted.
package keyring

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Key describes one primary public key found in a keyring.
type Key struct {
	ID       string // 16 uppercase hex digits
	UserID   string
	Creation time.Time
	Expiry   *time.Time // nil means the key never expires
}

// Expired reports whether the key's expiration time has passed. Keys with
// no expiration never expire.
func (k Key) Expired(now time.Time) bool {
	return k.Expiry != nil && !k.Expiry.After(now)
}

// ExpiryString renders the expiration as a calendar date, "never", or
// "Unknown" when the computed time is outside any plausible range.
func (k Key) ExpiryString() string {
	if k.Expiry == nil {
		return "never"
	}
	if k.Expiry.Year() < 1970 || k.Expiry.Year() > 9999 {
		return "Unknown"
	}
	return k.Expiry.Format("2006-01-02")
}

// Lister is the narrow surface the checks use so tests can substitute a
// fake without real key material on disk.
type Lister interface {
	ListKeys(path string) ([]Key, error)
}

// FileLister reads keyring files from the filesystem.
type FileLister struct{}

func (FileLister) ListKeys(path string) ([]Key, error) {
	entities, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(entities))
	for _, entity := range entities {
		keys = append(keys, fromEntity(entity))
	}
	return keys, nil
}

// LoadFile reads all entities from a keyring file.
func LoadFile(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a binary keyring, falling back to armored form.
func Read(r io.Reader) (openpgp.EntityList, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	entities, err := openpgp.ReadKeyRing(bytes.NewReader(blob))
	if err == nil {
		return entities, nil
	}
	entities, armErr := openpgp.ReadArmoredKeyRing(bytes.NewReader(blob))
	if armErr != nil {
		return nil, fmt.Errorf("parsing keyring: %w", err)
	}
	return entities, nil
}

func fromEntity(entity *openpgp.Entity) Key {
	key := Key{
		ID:       entity.PrimaryKey.KeyIdString(),
		Creation: entity.PrimaryKey.CreationTime,
	}
	ident := entity.PrimaryIdentity()
	if ident == nil {
		return key
	}
	key.UserID = ident.Name
	if sig := ident.SelfSignature; sig != nil && sig.KeyLifetimeSecs != nil && *sig.KeyLifetimeSecs > 0 {
		expiry := key.Creation.Add(time.Duration(*sig.KeyLifetimeSecs) * time.Second)
		key.Expiry = &expiry
	}
	return key
}
