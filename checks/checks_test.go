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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgdiag/cudadoctor/config"
	"github.com/pkgdiag/cudadoctor/lib/checkup"
	"github.com/pkgdiag/cudadoctor/lib/keyring"
)

var testNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

const releaseBody = "Origin: cudadoctor test\nLabel: cuda\nSuite: stable\nArchitectures: amd64\n"

// fixtureConfig points every path at a fresh temp dir so checks observe
// only what the test lays out.
func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.KeyringPath = filepath.Join(dir, "keyrings", "cuda-archive-keyring.gpg")
	cfg.SourcesDir = filepath.Join(dir, "sources.list.d")
	cfg.SourcesFile = filepath.Join(dir, "sources.list")
	cfg.OSReleasePath = filepath.Join(dir, "os-release")
	cfg.RepoURL = "https://repo.example/cuda"
	return cfg
}

func testEnv(t *testing.T) *Env {
	return &Env{
		Config:  fixtureConfig(t),
		Keyring: keyring.FileLister{},
		Now:     func() time.Time { return testNow },
	}
}

func newTestEntity(t *testing.T, name string) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity(name, "", "test@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	require.NoError(t, err)
	return entity
}

func installKeyring(t *testing.T, cfg *config.Config, entities ...*openpgp.Entity) {
	t.Helper()
	var buf bytes.Buffer
	for _, entity := range entities {
		require.NoError(t, entity.Serialize(&buf))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.KeyringPath), 0755))
	require.NoError(t, os.WriteFile(cfg.KeyringPath, buf.Bytes(), 0644))
}

func clearsignDoc(t *testing.T, signer *openpgp.Entity, body string) []byte {
	t.Helper()
	var doc bytes.Buffer
	w, err := clearsign.Encode(&doc, signer.PrivateKey, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return doc.Bytes()
}

type fakeLister struct {
	keys []keyring.Key
	err  error
}

func (f fakeLister) ListKeys(string) ([]keyring.Key, error) { return f.keys, f.err }

// fakeFetcher serves canned bodies by URL; URLs not in the map fail.
type fakeFetcher struct {
	bodies  map[string][]byte
	headErr error
}

func (f *fakeFetcher) Head(ctx context.Context, url string) error { return f.headErr }

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: unexpected status 404 Not Found", url)
	}
	return body, nil
}

type fakeLegacy struct {
	out string
	err error
}

func (f fakeLegacy) List(ctx context.Context) (string, error) { return f.out, f.err }

func TestKeyringFilePresent(t *testing.T) {
	env := testEnv(t)
	installKeyring(t, env.Config, newTestEntity(t, "CUDA Repo"))

	res := env.keyringFile(context.Background())
	assert.Equal(t, checkup.StatusPass, res.Status)
	assert.Contains(t, res.Summary, env.Config.KeyringPath)
	require.NotEmpty(t, res.Detail)
	assert.Regexp(t, `\d+ bytes`, res.Detail[0])
}

func TestKeyringFileMissingWithFallbackScan(t *testing.T) {
	env := testEnv(t)
	dir := filepath.Dir(env.Config.KeyringPath)
	require.NoError(t, os.MkdirAll(dir, 0755))
	stray := filepath.Join(dir, "nvidia-old-keyring.gpg")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0644))

	res := env.keyringFile(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	assert.Contains(t, strings.Join(res.Detail, "\n"), stray)
}

func TestKeyringFileMissingNothingElse(t *testing.T) {
	env := testEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(env.Config.KeyringPath), 0755))

	res := env.keyringFile(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	assert.Contains(t, strings.Join(res.Detail, "\n"), "no cuda/nvidia keyrings")
}

func TestKeyListingExpectedKeyPresent(t *testing.T) {
	env := testEnv(t)
	entity := newTestEntity(t, "CUDA Repo")
	installKeyring(t, env.Config, entity)
	env.Config.ExpectedKeyID = entity.PrimaryKey.KeyIdString()

	res := env.keyListing(context.Background())
	assert.Equal(t, checkup.StatusPass, res.Status)
	assert.Contains(t, res.Summary, entity.PrimaryKey.KeyIdString())
}

func TestKeyListingWrongKey(t *testing.T) {
	env := testEnv(t)
	wrong := newTestEntity(t, "Some Other Repo")
	installKeyring(t, env.Config, wrong)
	env.Config.ExpectedKeyID = "EB693B3035CD5710"

	res := env.keyListing(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	joined := strings.Join(res.Detail, "\n")
	assert.Contains(t, joined, "keys actually present")
	assert.Contains(t, joined, wrong.PrimaryKey.KeyIdString())
}

func TestKeyListingMissingKeyring(t *testing.T) {
	env := testEnv(t)
	res := env.keyListing(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	assert.Contains(t, res.Summary, "keyring missing")
}

func TestKeyExpiration(t *testing.T) {
	past := testNow.Add(-24 * time.Hour)
	future := testNow.Add(365 * 24 * time.Hour)

	for _, tc := range []struct {
		name   string
		keys   []keyring.Key
		status checkup.Status
	}{
		{"never expires", []keyring.Key{{ID: "AAAA"}}, checkup.StatusPass},
		{"future expiry", []keyring.Key{{ID: "AAAA", Expiry: &future}}, checkup.StatusPass},
		{"past expiry", []keyring.Key{{ID: "AAAA", Expiry: &past}}, checkup.StatusFail},
		{"mixed", []keyring.Key{{ID: "AAAA"}, {ID: "BBBB", Expiry: &past}}, checkup.StatusFail},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := testEnv(t)
			env.Keyring = fakeLister{keys: tc.keys}
			res := env.keyExpiration(context.Background())
			assert.Equal(t, tc.status, res.Status)
		})
	}
}

func TestKeyExpirationListerError(t *testing.T) {
	env := testEnv(t)
	env.Keyring = fakeLister{err: errors.New("no such file")}
	res := env.keyExpiration(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
}

func writeSource(t *testing.T, cfg *config.Config, name, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.SourcesDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourcesDir, name), []byte(contents), 0644))
}

func TestAptSourcesModern(t *testing.T) {
	env := testEnv(t)
	writeSource(t, env.Config, "cuda-ubuntu2404.list",
		"deb [signed-by=/usr/share/keyrings/cuda-archive-keyring.gpg] https://repo.example/cuda /\n")

	res := env.aptSources(context.Background())
	assert.Equal(t, checkup.StatusPass, res.Status)
	assert.Contains(t, strings.Join(res.Detail, "\n"), "modern method")
}

func TestAptSourcesLegacy(t *testing.T) {
	env := testEnv(t)
	writeSource(t, env.Config, "cuda-ubuntu2404.list", "deb https://repo.example/cuda /\n")

	res := env.aptSources(context.Background())
	assert.Equal(t, checkup.StatusWarn, res.Status)
	assert.Contains(t, strings.Join(res.Detail, "\n"), "legacy method")
}

func TestAptSourcesNoneConfigured(t *testing.T) {
	env := testEnv(t)
	require.NoError(t, os.MkdirAll(env.Config.SourcesDir, 0755))
	require.NoError(t, os.WriteFile(env.Config.SourcesFile,
		[]byte("deb http://archive.ubuntu.com/ubuntu noble main\n"), 0644))

	res := env.aptSources(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	assert.Contains(t, res.Summary, "no CUDA repository configured")
}

func TestAptSourcesLegacyFileFallback(t *testing.T) {
	env := testEnv(t)
	require.NoError(t, os.WriteFile(env.Config.SourcesFile,
		[]byte("deb https://repo.example/cuda /\n"), 0644))

	res := env.aptSources(context.Background())
	assert.Equal(t, checkup.StatusWarn, res.Status)
	assert.Contains(t, strings.Join(res.Detail, "\n"), "repo.example/cuda")
}

func TestReachability(t *testing.T) {
	env := testEnv(t)
	env.Fetcher = &fakeFetcher{}
	res := env.reachability(context.Background())
	assert.Equal(t, checkup.StatusPass, res.Status)
	assert.Contains(t, res.Summary, "https://repo.example/cuda/InRelease")
}

func TestReachabilityDown(t *testing.T) {
	env := testEnv(t)
	env.Fetcher = &fakeFetcher{headErr: errors.New("connect timeout")}
	res := env.reachability(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
}

func TestReachabilityNoFetcher(t *testing.T) {
	env := testEnv(t)
	res := env.reachability(context.Background())
	assert.Equal(t, checkup.StatusWarn, res.Status)
	assert.Contains(t, res.Summary, "skipping network test")
}

func TestReleaseSignatureInRelease(t *testing.T) {
	env := testEnv(t)
	signer := newTestEntity(t, "CUDA Repo")
	installKeyring(t, env.Config, signer)
	env.Fetcher = &fakeFetcher{bodies: map[string][]byte{
		"https://repo.example/cuda/InRelease": clearsignDoc(t, signer, releaseBody),
	}}

	res := env.releaseSignature(context.Background())
	assert.Equal(t, checkup.StatusPass, res.Status)
	assert.Contains(t, res.Summary, "CUDA Repo")
	assert.Contains(t, strings.Join(res.Detail, "\n"), "Origin: cudadoctor test")
}

func TestReleaseSignatureDetachedFallback(t *testing.T) {
	env := testEnv(t)
	signer := newTestEntity(t, "CUDA Repo")
	installKeyring(t, env.Config, signer)
	var sig bytes.Buffer
	require.NoError(t, openpgp.DetachSign(&sig, signer, strings.NewReader(releaseBody), nil))
	env.Fetcher = &fakeFetcher{bodies: map[string][]byte{
		"https://repo.example/cuda/Release":     []byte(releaseBody),
		"https://repo.example/cuda/Release.gpg": sig.Bytes(),
	}}

	res := env.releaseSignature(context.Background())
	assert.Equal(t, checkup.StatusPass, res.Status)
}

func TestReleaseSignatureWrongKey(t *testing.T) {
	env := testEnv(t)
	installKeyring(t, env.Config, newTestEntity(t, "Stale Key"))
	actual := newTestEntity(t, "Rotated Repo Key")
	env.Fetcher = &fakeFetcher{bodies: map[string][]byte{
		"https://repo.example/cuda/InRelease": clearsignDoc(t, actual, releaseBody),
	}}

	res := env.releaseSignature(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	assert.Contains(t, res.Summary, "signature verification failed")
	assert.Contains(t, strings.Join(res.Detail, "\n"), "apt-get update will fail")
}

func TestReleaseSignatureDownloadFailure(t *testing.T) {
	env := testEnv(t)
	installKeyring(t, env.Config, newTestEntity(t, "CUDA Repo"))
	env.Fetcher = &fakeFetcher{bodies: map[string][]byte{}}

	res := env.releaseSignature(context.Background())
	assert.Equal(t, checkup.StatusFail, res.Status)
	assert.Contains(t, res.Summary, "cannot download release index")
}

func TestReleaseSignatureSkips(t *testing.T) {
	t.Run("no fetcher", func(t *testing.T) {
		env := testEnv(t)
		installKeyring(t, env.Config, newTestEntity(t, "CUDA Repo"))
		res := env.releaseSignature(context.Background())
		assert.Equal(t, checkup.StatusWarn, res.Status)
	})
	t.Run("no keyring", func(t *testing.T) {
		env := testEnv(t)
		env.Fetcher = &fakeFetcher{}
		res := env.releaseSignature(context.Background())
		assert.Equal(t, checkup.StatusWarn, res.Status)
		assert.Contains(t, res.Summary, "keyring missing")
	})
}

func TestLegacyKeys(t *testing.T) {
	env := testEnv(t)
	env.LegacyKeys = fakeLegacy{out: strings.Join([]string{
		"pub   rsa4096 2017-09-28 [SCEA]",
		"uid   cudatools <cudatools@nvidia.com>",
		"sub   AE09FE4BBD223A84 2017-09-28 [E]",
		"",
		"pub   rsa2048 2012-05-11 [SC]",
		"uid   Launchpad PPA for someone else",
	}, "\n")}

	res := env.legacyKeys(context.Background())
	assert.Equal(t, checkup.StatusInfo, res.Status)
	joined := strings.Join(res.Detail, "\n")
	assert.Contains(t, joined, "cudatools")
	assert.Contains(t, joined, "AE09", "trailing context kept")
	assert.NotContains(t, res.Summary, "none")
}

func TestLegacyKeysNoneFound(t *testing.T) {
	env := testEnv(t)
	env.LegacyKeys = fakeLegacy{out: "pub rsa2048 2012-05-11 [SC]\nuid Ubuntu archive\n"}
	res := env.legacyKeys(context.Background())
	assert.Equal(t, checkup.StatusInfo, res.Status)
	assert.Contains(t, res.Summary, "no cuda/nvidia keys")
}

func TestLegacyKeysUnavailable(t *testing.T) {
	env := testEnv(t)
	res := env.legacyKeys(context.Background())
	assert.Equal(t, checkup.StatusWarn, res.Status)
	assert.Contains(t, res.Summary, "apt-key not installed")
}

func TestGrepContextMergesOverlaps(t *testing.T) {
	text := "a\ncuda one\nb\nc\nnvidia two\nd\ne\nf\ng\nh\ni\nj\n"
	lines := grepContext(text, 2)
	assert.Equal(t, []string{"cuda one", "b", "c", "nvidia two", "d", "e"}, lines)
}

func TestSystemInfo(t *testing.T) {
	env := testEnv(t)
	require.NoError(t, os.WriteFile(env.Config.OSReleasePath,
		[]byte("PRETTY_NAME=\"Ubuntu 24.04.1 LTS\"\nID=ubuntu\n"), 0644))

	res := env.systemInfo(context.Background())
	assert.Equal(t, checkup.StatusInfo, res.Status)
	joined := strings.Join(res.Detail, "\n")
	assert.Contains(t, joined, "Ubuntu 24.04.1")
	assert.Contains(t, joined, "architecture:")
	assert.Contains(t, joined, "time:")
}

// The whole checklist runs to the final summary even on a machine with none
// of the inspected files present.
func TestAllChecksRunOnEmptySystem(t *testing.T) {
	env := testEnv(t)
	var buf bytes.Buffer
	runner := &checkup.Runner{Out: &buf, Checks: All(env), Footer: Summary}
	results := runner.Run(context.Background())

	require.Len(t, results, 8)
	assert.Contains(t, buf.String(), "== [8/8] System information ==")
	assert.Contains(t, buf.String(), "Troubleshooting hints:")
}
