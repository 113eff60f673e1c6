package instance

import (
	"os"
	"strings"
)

const envInstanceID = "AMAIA_INSTANCE_ID"

// GetID identifies this process in logs: AMAIA_INSTANCE_ID, then DYNO, then
// the hostname, then "api-0".
func GetID() string {
	for _, key := range []string{envInstanceID, "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "api-0"
}
