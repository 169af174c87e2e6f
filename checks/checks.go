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

// Package checks implements the CUDA keyring diagnostic checklist. Each
// check re-derives the facts it needs instead of sharing state with the
// others, so any subset can fail without confusing the rest.
package checks

import (
	"time"

	"github.com/pkgdiag/cudadoctor/config"
	"github.com/pkgdiag/cudadoctor/lib/checkup"
	"github.com/pkgdiag/cudadoctor/lib/keyring"
	"github.com/pkgdiag/cudadoctor/lib/repofetch"
)

// Env carries the configuration and tool surfaces the checks run against.
// Nil Fetcher or LegacyKeys marks that capability as unavailable and turns
// the corresponding checks into skips.
type Env struct {
	Config     *config.Config
	Keyring    keyring.Lister
	Fetcher    repofetch.Fetcher
	LegacyKeys LegacyKeyLister
	Now        func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// All returns the checklist in its fixed order. Order affects presentation
// only; no check gates another.
func All(e *Env) []checkup.Check {
	return []checkup.Check{
		{Name: "Keyring file", Run: e.keyringFile},
		{Name: "Key listing", Run: e.keyListing},
		{Name: "Key expiration", Run: e.keyExpiration},
		{Name: "APT source configuration", Run: e.aptSources},
		{Name: "Repository reachability", Run: e.reachability},
		{Name: "Release signature", Run: e.releaseSignature},
		{Name: "Legacy trusted keys", Run: e.legacyKeys},
		{Name: "System information", Run: e.systemInfo},
	}
}

// Summary maps common symptoms to likely causes. It is static text, not
// derived from check results; reading it next to the marked lines above is
// the point.
const Summary = `Troubleshooting hints:
  - GPG errors from apt-get update usually mean the repository's signing key
    is missing from the configured keyring
  - an expired key means the cuda-keyring package needs upgrading to the
    current release
  - sources without a signed-by option rely on the system-wide trust store,
    which newer APT versions reject for third-party repositories
  - unreachable repository hosts usually point at a proxy or firewall
    between this machine and the CDN`
