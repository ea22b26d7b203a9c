package logging

import "regexp"

// Placeholder replaces redacted secrets in log output.
const Placeholder = "[REDACTED]"

var (
	authorizationBearerPattern = regexp.MustCompile(
		`(?i)((?:"|')?authorization(?:"|')?\s*(?:=|:)\s*)(bearer\s+)([^"'\s,;]+)`,
	)
	sensitiveKeyValuePattern = regexp.MustCompile(
		`(?i)((?:"|')?(?:access[_-]?token|token|secret|password|jwt[_-]?secret|cookie|credential)(?:"|')?\s*(?:=|:)\s*)(?:"|')?([^"'\s,;]+)((?:"|')?)`,
	)
	bearerTokenPattern = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-\._~+/]+=*)`)
	jwtPattern         = regexp.MustCompile(`eyJ[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]+`)
	postgresURLPattern = regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/\s]+:)([^@\s]+)(@)`)
)

// Sanitize redacts bearer tokens, password/secret assignments, raw JWTs and
// credentials embedded in database URLs.
func Sanitize(line string) string {
	sanitized := authorizationBearerPattern.ReplaceAllString(line, "${1}${2}"+Placeholder)
	sanitized = sensitiveKeyValuePattern.ReplaceAllString(sanitized, "${1}"+Placeholder+"${3}")
	sanitized = bearerTokenPattern.ReplaceAllString(sanitized, "${1}"+Placeholder)
	sanitized = jwtPattern.ReplaceAllString(sanitized, Placeholder)
	sanitized = postgresURLPattern.ReplaceAllString(sanitized, "${1}"+Placeholder+"${3}")
	return sanitized
}
