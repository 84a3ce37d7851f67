package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// sensitiveFields are attribute and struct field names whose values never
// reach a log line. Both the JSON and Go spellings are listed because the
// relay logs request bodies and domain structs alike.
var sensitiveFields = []string{
	"accessToken", "access_token", "AccessToken",
	"refreshToken", "refresh_token", "RefreshToken",
	"token", "password", "secret", "credential", "credentials",
	"apiKey", "api_key", "privateKey", "private_key",
	"authorization", "Authorization", "auth", "bearer",
	"cookie", "Cookie", "Set-Cookie",
}

var sensitivePrefixes = []string{"secret", "private", "refresh"}

var (
	jwtPattern       = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern    = regexp.MustCompile(`(?i)^bearer\s+.+$`)
	basicAuthPattern = regexp.MustCompile(`(?i)^basic\s+.+$`)
)

// DefaultRedactOptions returns the masq options every json and text handler
// applies: credential-named fields and JWT or Authorization-shaped values
// are masked wherever they appear.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+len(sensitivePrefixes)+3)

	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	for _, prefix := range sensitivePrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	return append(opts,
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(basicAuthPattern),
	)
}

// NewReplaceAttr returns a slog ReplaceAttr func applying DefaultRedactOptions
// plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
