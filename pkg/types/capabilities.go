package types

// Well-known capability keys. Matching itself is key-agnostic; these names
// only matter to the selector's reach computation and to config parsing.
const (
	CapBrowserName    = "browserName"
	CapBrowserVersion = "browserVersion"
	CapPlatformName   = "platformName"
)

// Capabilities is a key/value bag describing required (request side) or
// offered (stereotype side) browser and platform features. Values are the
// JSON scalar types: string, bool, or number.
type Capabilities map[string]any

// Clone returns a shallow copy. Values are scalars, so a shallow copy is a
// full copy for well-formed capability bags.
func (c Capabilities) Clone() Capabilities {
	if c == nil {
		return nil
	}
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Matches reports whether the offered stereotype satisfies the requested
// capabilities c. Every key present in c must be present in offered with an
// equal value; nil-valued or empty-string keys in the request mean "don't
// care"; extra keys on the offered side are ignored.
func (c Capabilities) Matches(offered Capabilities) bool {
	for k, want := range c {
		if want == nil {
			continue
		}
		if s, ok := want.(string); ok && s == "" {
			continue
		}
		got, ok := offered[k]
		if !ok {
			return false
		}
		if !capValueEqual(want, got) {
			return false
		}
	}
	return true
}

// capValueEqual compares two capability values. Numbers compare numerically
// regardless of concrete type so that a JSON-decoded float64 matches an int
// stereotype; everything else requires exact equality.
func capValueEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
