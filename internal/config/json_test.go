package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestParseJSON_AllFields(t *testing.T) {
	path := writeTempFile(t, `{
		"app": {"link_secret": "json-secret", "version": "1.2.3"},
		"storage": {"db": {"dsn": "postgres://localhost/sam"}},
		"server": {
			"http_address": "localhost:8080",
			"tls_cert": "/tls/cert.pem",
			"tls_key": "/tls/key.pem",
			"request_timeout": "30s"
		},
		"workers": {"sweep_interval": "10m"}
	}`)

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "json-secret", cfg.App.LinkSecret)
	assert.Equal(t, "1.2.3", cfg.App.Version)
	assert.Equal(t, "postgres://localhost/sam", cfg.Storage.DB.DSN)
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "/tls/cert.pem", cfg.Server.TLSCertPath)
	assert.Equal(t, "/tls/key.pem", cfg.Server.TLSKeyPath)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Workers.SweepInterval)

	// the file path never propagates out of the parsed config
	assert.Empty(t, cfg.JSONFilePath)
}

func TestParseJSON_FileNotFound(t *testing.T) {
	_, err := parseJSON("/nonexistent/config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading a json file")
}

func TestParseJSON_MalformedContent(t *testing.T) {
	path := writeTempFile(t, "{not valid json")

	_, err := parseJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error decoding json configs")
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  time.Duration
		expectErr bool
	}{
		{"duration string", `"1h30m"`, 90 * time.Minute, false},
		{"seconds string", `"45s"`, 45 * time.Second, false},
		{"numeric nanoseconds", `1000000000`, time.Second, false},
		{"invalid string", `"not-a-duration"`, 0, true},
		{"wrong type", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)

			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, time.Duration(d))
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Duration(90 * time.Minute))
	require.NoError(t, err)
	assert.JSONEq(t, `"1h30m0s"`, string(data))
}
