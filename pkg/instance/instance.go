package instance

import (
	"os"

	"github.com/cartacocktail/carta-backend/pkg/env"
)

// ID names this process in logs. CARTA_INSTANCE_ID wins, then the platform's dyno
// name, then the hostname.
func ID() string {
	if id := env.First("CARTA_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
