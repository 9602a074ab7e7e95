package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sentinelauth/internal/flagx"
	"github.com/dmitrijs2005/sentinelauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "15m" as well as integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	FingerprintKey               *string         `json:"fingerprint_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	TokenStore                   *string         `json:"token_store"`
	RedisAddr                    *string         `json:"redis_addr"`
	RedisPassword                *string         `json:"redis_password"`
	RedisDB                      *int            `json:"redis_db"`
	PasswordTime                 *uint32         `json:"password_time"`
	PasswordMemoryKiB            *uint32         `json:"password_memory_kib"`
	PasswordThreads              *uint8          `json:"password_threads"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads the file named by -c / -config into config. Keys missing
// from the file keep their current values. An unreadable file or invalid
// JSON panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.FingerprintKey, c.FingerprintKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setIf(&config.TokenStore, c.TokenStore)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.RedisPassword, c.RedisPassword)
	setIf(&config.RedisDB, c.RedisDB)
	setIf(&config.PasswordTime, c.PasswordTime)
	setIf(&config.PasswordMemoryKiB, c.PasswordMemoryKiB)
	setIf(&config.PasswordThreads, c.PasswordThreads)
	setIf(&config.LogLevel, c.LogLevel)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
