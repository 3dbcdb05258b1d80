package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Init configures the global logrus logger. Production gets JSON at info
// level; everything else gets text at debug level.
func Init(environment string) {
	log.SetOutput(os.Stdout)
	if strings.EqualFold(environment, "production") {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.DebugLevel)
}

// WithTenant scopes a logger to one tenant board.
func WithTenant(tenantID string) *log.Entry {
	return log.WithField("tenant_id", tenantID)
}
