package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SIOT_PASSWORD", "s3cret")

	p := writeConfig(t, `
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  dataset_refreshed_topic_name: "movements.refreshed"
redis:
  host: "localhost"
  port: 6379
berth:
  http_addr: ":8080"
  kafka_consumer_group: "berth-api"
  timezone: "UTC"
  board_cache_ttl_seconds: 60
  worker_http_addr: ":8082"
  worker_refresh_interval_seconds: 0
  worker_trigger_limit_per_minute: 6
sources:
  - id: tmt
    kind: html
    url: "https://www.trieste-marine-terminal.com/it"
  - id: siot
    kind: portal
    login_url: "https://portal.example/login"
    export_url: "https://portal.example/export"
    username: "ops"
    password: "${SIOT_PASSWORD}"
    delimiter: ";"
    timeout_seconds: 15
    columns:
      - raw: "TLB"
        field: "ETD"
        adjust_minutes: -30
`)

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.DSN())
	require.Equal(t, "movements.refreshed", cfg.Kafka.DatasetRefreshedTopicName)
	require.Equal(t, "localhost:9092", cfg.Kafka.Broker())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, ":8080", cfg.Berth.HTTPAddr)
	require.Equal(t, 6, cfg.Berth.WorkerTriggerLimitPerMinute)

	require.Len(t, cfg.Sources, 2)
	require.Equal(t, "s3cret", cfg.Sources[1].Password)
	require.Equal(t, -30, cfg.Sources[1].Columns[0].AdjustMinutes)
	require.Equal(t, int64(15), int64(cfg.Sources[1].Timeout().Seconds()))

	loc, err := cfg.Berth.Location()
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "berth: ["))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `
sources:
  - id: tmt
    kind: html
`))
	require.ErrorContains(t, err, "url is required")

	_, err = LoadConfig(writeConfig(t, `
sources:
  - id: x
    kind: ftp
`))
	require.ErrorContains(t, err, "unknown kind")

	_, err = LoadConfig(writeConfig(t, `
sources:
  - id: a
    kind: fake
  - id: a
    kind: fake
`))
	require.ErrorContains(t, err, "duplicate id")
}

func TestBerthConfig_DefaultTimezone(t *testing.T) {
	loc, err := BerthConfig{}.Location()
	if err != nil {
		t.Skip("tzdata not available")
	}
	require.Equal(t, "Europe/Rome", loc.String())

	_, err = BerthConfig{Timezone: "Mars/Olympus"}.Location()
	require.Error(t, err)
}
