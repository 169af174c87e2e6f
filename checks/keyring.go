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

package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkgdiag/cudadoctor/lib/aptsource"
	"github.com/pkgdiag/cudadoctor/lib/checkup"
)

// keyringFile reports whether the expected keyring file exists. When it
// does not, the rest of the keyring directory is scanned for anything
// CUDA-related that may have landed under a different name.
func (e *Env) keyringFile(ctx context.Context) checkup.Result {
	path := e.Config.KeyringPath
	fi, err := os.Stat(path)
	if err == nil {
		return checkup.Passf("keyring present: %s", path).WithDetail(
			fmt.Sprintf("%d bytes, mode %s, modified %s",
				fi.Size(), fi.Mode(), fi.ModTime().UTC().Format(time.RFC3339)))
	}
	res := checkup.Failf("keyring not found: %s", path)
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return res.WithDetail(fmt.Sprintf("cannot scan %s: %v", dir, err))
	}
	var candidates []string
	for _, entry := range entries {
		if aptsource.MatchesName(entry.Name()) {
			candidates = append(candidates, filepath.Join(dir, entry.Name()))
		}
	}
	if len(candidates) == 0 {
		return res.WithDetail(fmt.Sprintf("no cuda/nvidia keyrings under %s", dir))
	}
	res = res.WithDetail(fmt.Sprintf("other cuda/nvidia keyrings under %s:", dir))
	return res.WithDetail(candidates...)
}

// keyListing parses the keyring and looks for the expected signing key ID.
func (e *Env) keyListing(ctx context.Context) checkup.Result {
	path := e.Config.KeyringPath
	if _, err := os.Stat(path); err != nil {
		return checkup.Failf("cannot list keys: keyring missing at %s", path)
	}
	keys, err := e.Keyring.ListKeys(path)
	if err != nil {
		return checkup.Failf("cannot list keys: %v", err)
	}
	if len(keys) == 0 {
		return checkup.Failf("keyring %s contains no public keys", path)
	}
	var detail, ids []string
	for _, key := range keys {
		detail = append(detail, fmt.Sprintf("pub  %s  %s  created %s  expires %s",
			key.ID, key.UserID, key.Creation.UTC().Format("2006-01-02"), key.ExpiryString()))
		ids = append(ids, key.ID)
	}
	want := strings.ToUpper(e.Config.ExpectedKeyID)
	for _, id := range ids {
		if strings.Contains(strings.ToUpper(id), want) {
			return checkup.Passf("expected key %s present", want).WithDetail(detail...)
		}
	}
	res := checkup.Failf("expected key %s not found", want).WithDetail(detail...)
	return res.WithDetail("keys actually present: " + strings.Join(ids, ", "))
}

// keyExpiration checks each primary key's expiration against the clock.
func (e *Env) keyExpiration(ctx context.Context) checkup.Result {
	keys, err := e.Keyring.ListKeys(e.Config.KeyringPath)
	if err != nil {
		return checkup.Failf("cannot check expiration: %v", err)
	}
	if len(keys) == 0 {
		return checkup.Failf("keyring %s contains no public keys", e.Config.KeyringPath)
	}
	now := e.now()
	var detail []string
	expired := 0
	for _, key := range keys {
		switch {
		case key.Expiry == nil:
			detail = append(detail, fmt.Sprintf("key %s never expires", key.ID))
		case key.Expired(now):
			expired++
			detail = append(detail, fmt.Sprintf("key %s EXPIRED on %s", key.ID, key.ExpiryString()))
		default:
			detail = append(detail, fmt.Sprintf("key %s valid until %s", key.ID, key.ExpiryString()))
		}
	}
	if expired > 0 {
		return checkup.Failf("%d of %d key(s) expired", expired, len(keys)).WithDetail(detail...)
	}
	return checkup.Passf("no expired keys").WithDetail(detail...)
}
