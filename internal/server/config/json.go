package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pulsekeeper/internal/flagx"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "90m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	Timezone                    string         `json:"timezone"`
	RecentDaysDefault           int            `json:"recent_days_default"`
	RedisAddr                   string         `json:"redis_addr"`
	IngestRate                  float64        `json:"ingest_rate"`
	IngestBurst                 int            `json:"ingest_burst"`
	LogBackend                  string         `json:"log_backend"`
	TraceExporter               string         `json:"trace_exporter"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Keys missing from the file keep their current value. An unreadable file or
// malformed JSON panics, same as a bad flag.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.Timezone, c.Timezone)
	if c.RecentDaysDefault > 0 {
		config.RecentDaysDefault = c.RecentDaysDefault
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.IngestRate > 0 {
		config.IngestRate = c.IngestRate
	}
	if c.IngestBurst > 0 {
		config.IngestBurst = c.IngestBurst
	}
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.TraceExporter, c.TraceExporter)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
