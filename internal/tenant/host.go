// Copyright 2026 The Agency Edge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"net"
	"strings"
)

const localDevDomain = "localhost"

// HostParser maps a Host header to a tenant subdomain under RootDomain.
type HostParser struct {
	RootDomain string
	rootLabels int
}

// NewHostParser creates a parser for the given root domain, e.g. "finestafrica.ai".
func NewHostParser(rootDomain string) HostParser {
	root := normalizeHost(rootDomain)
	return HostParser{RootDomain: root, rootLabels: len(strings.Split(root, "."))}
}

// Subdomain returns the tenant subdomain carried by host, or false when the
// host addresses the unbranded root site or a foreign domain.
func (p HostParser) Subdomain(host string) (string, bool) {
	h := normalizeHost(host)
	if h == "" || p.RootDomain == "" {
		return "", false
	}
	if h == p.RootDomain || h == "www."+p.RootDomain {
		return "", false
	}

	labels := strings.Split(h, ".")
	if len(labels) == 2 && labels[1] == localDevDomain {
		return candidate(labels[0])
	}

	rootLabels := p.rootLabels
	if rootLabels == 0 {
		rootLabels = len(strings.Split(p.RootDomain, "."))
	}
	if len(labels) < rootLabels+1 || len(labels) < 3 {
		return "", false
	}
	if strings.Join(labels[len(labels)-rootLabels:], ".") != p.RootDomain {
		return "", false
	}
	return candidate(labels[0])
}

func candidate(label string) (string, bool) {
	if label == "" || label == "www" {
		return "", false
	}
	return label, true
}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		h = hostOnly
	}
	return strings.TrimSuffix(h, ".")
}
