package dbclient

import "strings"

func containsParam(rest, key string) bool {
	_, query, ok := strings.Cut(rest, "?")
	if !ok {
		return false
	}
	for _, kv := range strings.Split(query, "&") {
		if k, _, _ := strings.Cut(kv, "="); k == key {
			return true
		}
	}
	return false
}

func paramSep(rest string) string {
	if strings.Contains(rest, "?") {
		return "&"
	}
	return "?"
}

func trimSlash(p string) string { return strings.TrimPrefix(p, "/") }
