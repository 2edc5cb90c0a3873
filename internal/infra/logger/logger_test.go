package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"budget_alert_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_ProductionWritesJSONWithDefaultFields(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	Configure(l, &config.AppConfig{LogLevel: "warn", Environment: "production"})
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.WithField("component", "budget_monitor").Info("dropped by level")
	l.WithFields(logrus.Fields{"component": "budget_monitor", "env": "override"}).Warn("Budget exceeded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "exactly one JSON line: %s", buf.String())
	assert.Equal(t, "Budget exceeded", line["msg"])
	assert.Equal(t, ServiceName, line["service"])
	assert.Equal(t, "override", line["env"])
	assert.Equal(t, "budget_monitor", line["component"])
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})

	Configure(l, &config.AppConfig{LogLevel: "loud", Environment: "development"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestConfigure_ReplacesHooks(t *testing.T) {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})

	Configure(l, &config.AppConfig{LogLevel: "info", Environment: "staging"})
	Configure(l, &config.AppConfig{LogLevel: "info", Environment: "staging"})
	assert.Len(t, l.Hooks[logrus.InfoLevel], 1)
}
