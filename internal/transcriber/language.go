package transcriber

import "strings"

// normalizeDeepgramLanguage turns "pt_br" into "pt-BR" and bare "en" into en-US.
func normalizeDeepgramLanguage(code string) string {
	base, region, ok := strings.Cut(strings.ReplaceAll(code, "_", "-"), "-")
	base = strings.ToLower(base)
	switch {
	case ok && region != "":
		return base + "-" + strings.ToUpper(region)
	case base == "en":
		return "en-US"
	default:
		return base
	}
}
