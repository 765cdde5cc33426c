package device

import (
	"fmt"
	"strings"

	"github.com/mssola/user_agent"
)

// Label derives a human-readable device label from a User-Agent header,
// e.g. "Chrome on Linux x86_64".
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown device"
	}
	ua := user_agent.New(userAgent)
	name, _ := ua.Browser()
	platform := ua.OS()
	if platform == "" {
		platform = ua.Platform()
	}
	if name == "" {
		return "Unknown device"
	}
	if platform == "" {
		return name
	}
	return fmt.Sprintf("%s on %s", name, platform)
}
