package instance

import "github.com/tapify/tapify-backend/pkg/env"

// ID identifies this process in logs and lock ownership: DYNO when set,
// then HOSTNAME, then "local".
func ID() string {
	return env.First("local", "DYNO", "HOSTNAME")
}
