// Package config loads trackcore settings from the environment, with
// optional .env file support for development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config aggregates the settings consumed at service startup.
type Config struct {
	Storage StorageConfig
	Blob    BlobConfig
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// BlobConfig selects and parameterizes the document blob backend.
type BlobConfig struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() (*Config, error) {
	// ignore a missing .env; production supplies real environment variables
	_ = godotenv.Load()

	cfg := &Config{
		Storage: StorageConfig{
			Driver:      getEnv("TRACKCORE_STORAGE_DRIVER", "sqlite"),
			SQLitePath:  getEnv("TRACKCORE_SQLITE_PATH", "./trackcore.db"),
			PostgresDSN: getEnv("TRACKCORE_POSTGRES_DSN", ""),
		},
		Blob: BlobConfig{
			Driver:      getEnv("TRACKCORE_BLOB_DRIVER", "fs"),
			FSRoot:      getEnv("TRACKCORE_BLOB_FS_ROOT", "./blobdata"),
			S3Bucket:    getEnv("TRACKCORE_BLOB_S3_BUCKET", ""),
			S3Region:    getEnv("TRACKCORE_BLOB_S3_REGION", ""),
			S3Endpoint:  getEnv("TRACKCORE_BLOB_S3_ENDPOINT", ""),
			S3PathStyle: strings.EqualFold(getEnv("TRACKCORE_BLOB_S3_PATH_STYLE", "false"), "true"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects driver selections that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("TRACKCORE_POSTGRES_DSN is required when storage driver is postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("TRACKCORE_BLOB_S3_BUCKET is required when blob driver is s3")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
