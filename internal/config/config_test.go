package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("expected sqlite default, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLitePath != "./trackcore.db" {
		t.Fatalf("unexpected sqlite path %s", cfg.Storage.SQLitePath)
	}
	if cfg.Blob.Driver != "fs" {
		t.Fatalf("expected fs default, got %s", cfg.Blob.Driver)
	}
	if cfg.Blob.FSRoot != "./blobdata" {
		t.Fatalf("unexpected blob root %s", cfg.Blob.FSRoot)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TRACKCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("TRACKCORE_POSTGRES_DSN", "postgres://localhost/track?sslmode=disable")
	t.Setenv("TRACKCORE_BLOB_DRIVER", "s3")
	t.Setenv("TRACKCORE_BLOB_S3_BUCKET", "track-blobs")
	t.Setenv("TRACKCORE_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("TRACKCORE_BLOB_S3_PATH_STYLE", "TRUE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN == "" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Blob.S3Bucket != "track-blobs" || cfg.Blob.S3Region != "eu-west-1" {
		t.Fatalf("unexpected blob config %+v", cfg.Blob)
	}
	if !cfg.Blob.S3PathStyle {
		t.Fatalf("path style flag must parse case-insensitively")
	}
}

func TestValidateRejectsBadDrivers(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown storage", Config{Storage: StorageConfig{Driver: "oracle"}, Blob: BlobConfig{Driver: "fs"}}},
		{"postgres without dsn", Config{Storage: StorageConfig{Driver: "postgres"}, Blob: BlobConfig{Driver: "fs"}}},
		{"unknown blob", Config{Storage: StorageConfig{Driver: "memory"}, Blob: BlobConfig{Driver: "ftp"}}},
		{"s3 without bucket", Config{Storage: StorageConfig{Driver: "memory"}, Blob: BlobConfig{Driver: "s3"}}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateAcceptsSupportedCombinations(t *testing.T) {
	cfg := Config{
		Storage: StorageConfig{Driver: "postgres", PostgresDSN: "postgres://localhost/track"},
		Blob:    BlobConfig{Driver: "s3", S3Bucket: "bucket"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
