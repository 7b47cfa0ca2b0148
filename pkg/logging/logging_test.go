package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetOutput(os.Stderr)
	})

	var buf bytes.Buffer
	require.NoError(t, Configure("debug", FormatJSON, &buf))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.WithField("connector", "clearid").Debug("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "clearid", entry["connector"])
}

func TestConfigureRejectsBadInput(t *testing.T) {
	assert.Error(t, Configure("loud", FormatText, nil))
	assert.Error(t, Configure("info", "xml", nil))
}
