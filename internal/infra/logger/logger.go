// internal/infra/logger/logger.go
package logger

import (
	"os"
	"strings"

	"budget_alert_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// ServiceName tags every log line so shipped logs can be filtered per service.
const ServiceName = "budget_alert_bot"

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from the application configuration.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Configure(Log, cfg)
	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
}

// Configure applies level, formatter and default fields to l. Calling it again replaces them.
func Configure(l *logrus.Logger, cfg *config.AppConfig) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		l.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetLevel(level)
	}

	if cfg.Environment == "production" || cfg.Environment == "staging" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	hooks := make(logrus.LevelHooks)
	hooks.Add(&defaultFieldsHook{fields: logrus.Fields{
		"service": ServiceName,
		"env":     cfg.Environment,
	}})
	l.ReplaceHooks(hooks)
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// defaultFieldsHook adds fields to every entry unless the entry already sets them.
type defaultFieldsHook struct {
	fields logrus.Fields
}

func (h *defaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *defaultFieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}
