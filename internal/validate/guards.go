// Package validate holds pure predicates and branded constructors
// used at every boundary where external input becomes a domain value:
// audio content-type whitelisting, size bounds, URL syntax, and the
// small scalar guards validateSettingsPatch builds on.
package validate

import (
	"net/url"
	"strings"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// AudioContentType reports whether ct (an HTTP Content-Type header
// value, possibly with parameters) names a whitelisted audio format.
func AudioContentType(ct string) bool {
	base := ct
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		base = ct[:i]
	}
	base = strings.ToLower(strings.TrimSpace(base))
	return domain.AudioContentTypes[base]
}

// AudioSize reports whether n bytes falls within (0, max].
func AudioSize(n int64, max int64) bool {
	return n > 0 && n <= max
}

// NonEmptyString reports whether s has at least one non-whitespace
// character.
func NonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// PositiveInt reports whether n is strictly positive.
func PositiveInt(n int64) bool {
	return n > 0
}

// URLSyntax reports whether s parses as an absolute URL with a
// recognized scheme. Used for openclawGatewayUrl (ws/wss) and for
// whisperx.baseUrl and customHttp.url (http/https).
func URLSyntax(s string, allowedSchemes ...string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	if len(allowedSchemes) == 0 {
		return u.Scheme != ""
	}
	for _, scheme := range allowedSchemes {
		if strings.EqualFold(u.Scheme, scheme) {
			return true
		}
	}
	return false
}

// ProviderId is the branded constructor for domain.ProviderId: it
// validates against the closed enum and returns a UserError on
// failure instead of panicking, so the HTTP layer can map it to 400.
func ProviderId(raw string) (domain.ProviderId, error) {
	id := domain.ProviderId(strings.ToLower(strings.TrimSpace(raw)))
	if !domain.ValidProviderId(id) {
		return "", domain.NewUserError(domain.CodeInvalidConfig, "unknown sttProvider: "+raw)
	}
	return id, nil
}

// Confidence reports whether v lies in the valid confidence range.
func Confidence(v float64) bool {
	return v >= 0 && v <= 1
}
