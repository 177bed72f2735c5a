package logging

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Init sets the global log level and formatter.
func Init(level string) {
	setLogLevel(strings.ToLower(strings.TrimSpace(level)))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}

// For returns a logger tagged with the component name.
func For(component string) *log.Entry {
	return log.WithField("component", component)
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
