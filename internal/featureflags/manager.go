// Package featureflags evaluates runtime toggles configured through FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags understood by the API.
const (
	// RenderedContent adds sanitized HTML (contentHtml) to single post fetches.
	RenderedContent = "rendered_content"
	// LiveFeed enables the websocket feed and event publishing.
	LiveFeed = "live_feed"
)

var defaults = map[string]string{
	RenderedContent: "on",
	LiveFeed:        "on",
}

// rule is one parsed flag value: fully on, fully off, or a percentage of
// signed-in users. Values that parse as none of these are treated as off.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
	default:
		if n, ok := strings.CutSuffix(value, "%"); ok {
			if pct, err := strconv.Atoi(n); err == nil {
				r.percent = min(max(pct, 0), 100)
			}
		}
	}
	return r
}

// Manager holds the flags from one FEATURE_FLAGS value, for example
// "rendered_content=on,live_feed=25%".
type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated key=value list over the defaults.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule, len(defaults))}
	for k, v := range defaults {
		m.rules[k] = parseRule(v)
	}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k, v = normalize(k), normalize(v)
		if ok && k != "" && v != "" {
			m.rules[k] = parseRule(v)
		}
	}
	return m
}

// Enabled reports whether name is on for userID. Partial rollouts place each
// user in a stable bucket per flag and never include anonymous callers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	r := m.rules[name]
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// EnabledAnywhere reports whether the flag is on for at least some users.
// Process-wide features such as the websocket route use it.
func (m *Manager) EnabledAnywhere(name string) bool {
	return m != nil && m.rules[normalize(name)].percent > 0
}

// Raw returns the configured value of every flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
