package cache

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RouteKeysSetKey holds every cached route key so a flight change can drop
// them all without SCAN.
const RouteKeysSetKey = "flight:routes:keys"

// POST /api/routes
// flight:routes:{origin}:{destination}:hops={n|all}
func RoutesKey(origin, destination string, maxHops int, bounded bool) string {
	hops := "all"
	if bounded {
		hops = strconv.Itoa(maxHops)
	}
	return fmt.Sprintf("flight:routes:%s:%s:hops=%s", escapeCode(origin), escapeCode(destination), hops)
}

func escapeCode(code string) string {
	return url.PathEscape(strings.ToUpper(strings.TrimSpace(code)))
}
