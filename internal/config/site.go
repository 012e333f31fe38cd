package config

import "strings"

// SiteOverride holds user-specified behavior for a single site.
// Overrides let users quiet the advisory engine for hosts they know, such
// as an intranet portal whose login page trips structural heuristics.
type SiteOverride struct {
	// Trusted marks the site as explicitly trusted. Trusted sites are never
	// sent to the oracle; their badge goes straight to the safe state.
	Trusted bool `yaml:"trusted,omitempty"`

	// MuteBanner suppresses the warning banner for this site while keeping
	// classification, badging, and logging active.
	MuteBanner bool `yaml:"muteBanner,omitempty"`
}

// File represents the structure of the .phishguard configuration file.
type File struct {
	// Sites maps hostnames to their overrides. Keys are bare hostnames
	// (e.g., "login.example.com"). A key starting with "*." matches the
	// host and any subdomain of it.
	Sites map[string]SiteOverride `yaml:"sites,omitempty"`
}

// OverrideFor returns the override for a hostname, if any.
// Exact entries win over wildcard entries.
func (cf *File) OverrideFor(host string) (SiteOverride, bool) {
	if cf == nil || len(cf.Sites) == 0 {
		return SiteOverride{}, false
	}

	host = strings.ToLower(host)
	if ov, ok := cf.Sites[host]; ok {
		return ov, true
	}

	// Walk up the domain looking for wildcard entries: a "*.example.com"
	// entry matches example.com and every host under it.
	labels := strings.Split(host, ".")
	for i := 0; i < len(labels)-1; i++ {
		candidate := "*." + strings.Join(labels[i:], ".")
		if ov, ok := cf.Sites[candidate]; ok {
			return ov, true
		}
	}

	return SiteOverride{}, false
}

// IsTrusted reports whether the hostname is covered by a trusted override.
func (cf *File) IsTrusted(host string) bool {
	ov, ok := cf.OverrideFor(host)
	return ok && ov.Trusted
}
