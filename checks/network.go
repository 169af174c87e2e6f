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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkgdiag/cudadoctor/lib/checkup"
	"github.com/pkgdiag/cudadoctor/lib/keyring"
	"github.com/pkgdiag/cudadoctor/lib/pgptools"
)

const (
	reachTimeout = 10 * time.Second
	fetchTimeout = 60 * time.Second
	previewLines = 20
)

func (e *Env) releaseURL(name string) string {
	return strings.TrimSuffix(e.Config.RepoURL, "/") + "/" + name
}

// reachability probes the repository's release index endpoint. Any HTTP
// response counts as reachable; this check is about the network path, not
// the repository contents.
func (e *Env) reachability(ctx context.Context) checkup.Result {
	if e.Fetcher == nil {
		return checkup.Warnf("no HTTP client available, skipping network test")
	}
	url := e.releaseURL("InRelease")
	ctx, cancel := context.WithTimeout(ctx, reachTimeout)
	defer cancel()
	if err := e.Fetcher.Head(ctx, url); err != nil {
		return checkup.Failf("cannot reach %s: %v", url, err)
	}
	return checkup.Passf("repository reachable: %s", url)
}

// releaseSignature downloads the release index into a scratch directory and
// verifies it against the keyring. InRelease (clearsigned) is preferred;
// Release plus its detached Release.gpg is the fallback.
func (e *Env) releaseSignature(ctx context.Context) checkup.Result {
	if e.Fetcher == nil {
		return checkup.Warnf("no HTTP client available, skipping signature verification")
	}
	if _, err := os.Stat(e.Config.KeyringPath); err != nil {
		return checkup.Warnf("keyring missing at %s, cannot verify the release file", e.Config.KeyringPath)
	}
	scratch, err := os.MkdirTemp("", "cudadoctor-release-")
	if err != nil {
		return checkup.Failf("cannot create scratch directory: %v", err)
	}
	defer os.RemoveAll(scratch)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	release, sig, name, err := e.fetchRelease(ctx, scratch)
	if err != nil {
		return checkup.Failf("cannot download release index: %v", err)
	}
	detail := append([]string{"first lines of " + name + ":"}, firstLines(release, previewLines)...)

	entities, err := keyring.LoadFile(e.Config.KeyringPath)
	if err != nil {
		return checkup.Failf("cannot load keyring: %v", err).WithDetail(detail...)
	}
	var signature *pgptools.PgpSignature
	if sig == nil {
		signature, err = pgptools.VerifyClearSign(bytes.NewReader(release), io.Discard, entities)
	} else {
		signature, err = pgptools.VerifyDetached(bytes.NewReader(sig), bytes.NewReader(release), entities)
	}
	if err != nil {
		res := checkup.Failf("signature verification failed: %v", err).WithDetail(detail...)
		return res.WithDetail("the release file is signed by a key this keyring does not trust;",
			"apt-get update will fail the same way until the keyring is updated")
	}
	signer := signature.Key.PublicKey.KeyIdString()
	if name := pgptools.EntityName(signature.Key.Entity); name != "" {
		signer = fmt.Sprintf("%s (%s)", name, signer)
	}
	return checkup.Passf("release file verified, signed by %s", signer).WithDetail(detail...)
}

// fetchRelease retrieves InRelease, or Release and Release.gpg when the
// inline variant is unavailable. Files are also written to the scratch
// directory so a failed verification leaves something to inspect in the
// check's own output.
func (e *Env) fetchRelease(ctx context.Context, scratch string) (release, sig []byte, name string, err error) {
	release, inErr := e.Fetcher.Fetch(ctx, e.releaseURL("InRelease"))
	if inErr == nil {
		err = os.WriteFile(filepath.Join(scratch, "InRelease"), release, 0644)
		return release, nil, "InRelease", err
	}
	release, relErr := e.Fetcher.Fetch(ctx, e.releaseURL("Release"))
	if relErr != nil {
		return nil, nil, "", fmt.Errorf("InRelease: %v; Release: %v", inErr, relErr)
	}
	sig, sigErr := e.Fetcher.Fetch(ctx, e.releaseURL("Release.gpg"))
	if sigErr != nil {
		return nil, nil, "", fmt.Errorf("Release.gpg: %w", sigErr)
	}
	if err := os.WriteFile(filepath.Join(scratch, "Release"), release, 0644); err != nil {
		return nil, nil, "", err
	}
	err = os.WriteFile(filepath.Join(scratch, "Release.gpg"), sig, 0644)
	return release, sig, "Release", err
}

func firstLines(data []byte, n int) []string {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = "  " + line
	}
	return out
}
