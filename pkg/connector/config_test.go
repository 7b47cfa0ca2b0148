package connector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileExpandsEnvironment(t *testing.T) {
	t.Setenv("CLEARID_TEST_SECRET", "s3cret")

	path := filepath.Join(t.TempDir(), "clearid.yaml")
	content := `
environment: europe
accountId: acc-1
clientSecret: ${CLEARID_TEST_SECRET}
provisioningAttributes:
  - Remote-VPN
  - Parking
pageSize: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "europe", config["environment"])
	assert.Equal(t, "s3cret", config["clientSecret"])
	assert.Equal(t, []interface{}{"Remote-VPN", "Parking"}, config["provisioningAttributes"])
	assert.Equal(t, 50, config["pageSize"])
}

func TestParseConfigAcceptsJSON(t *testing.T) {
	config, err := ParseConfig([]byte(`{"environment": "production", "ignoreSSL": true}`))
	require.NoError(t, err)

	assert.Equal(t, "production", config["environment"])
	assert.Equal(t, true, config["ignoreSSL"])
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, IsCategory(err, ErrCategoryValidation))

	_, err = ParseConfig([]byte("environment: [unterminated"))
	assert.True(t, IsCategory(err, ErrCategoryValidation))
}
