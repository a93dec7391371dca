// Package featureflags evaluates runtime feature switches from FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags known to the users service.
const (
	BiometricLogin = "biometric_login"
	FollowerSearch = "follower_search"
)

// rule is one parsed flag value. percent is 100 for on, 0 for off and
// -1 for values that could not be understood.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	r := rule{raw: value, percent: -1}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
		r.percent = 0
	default:
		if n, ok := strings.CutSuffix(value, "%"); ok {
			if pct, err := strconv.Atoi(n); err == nil {
				r.percent = min(max(pct, 0), 100)
			}
		}
	}
	return r
}

func (r rule) enabledFor(name, subject string) bool {
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, subject == "":
		return false
	}
	return bucket(name, subject) < r.percent
}

// Manager holds flags parsed from a "name=value,..." list, for example
// "biometric_login=on,follower_search=25%". Names and values are case
// insensitive; malformed pairs are skipped.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw into a Manager.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		rules[name] = parseRule(value)
	}
	return &Manager{rules: rules}
}

// Enabled reports whether name is on for subject, a user's email.
// Values are on/true/1, off/false/0 or N% for a rollout that is stable per
// subject. Unset and unparseable flags are off.
func (m *Manager) Enabled(name, subject string) bool {
	return m.EnabledOr(name, subject, false)
}

// EnabledOr is Enabled with def returned for flags that are not configured.
func (m *Manager) EnabledOr(name, subject string, def bool) bool {
	if m == nil {
		return def
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return def
	}
	return r.enabledFor(name, subject)
}

// Raw returns the configured values keyed by flag name.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag for subject.
func (m *Manager) Snapshot(subject string) map[string]bool {
	out := make(map[string]bool)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.enabledFor(name, subject)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name)))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(normalize(subject)))
	return int(h.Sum32() % 100)
}
