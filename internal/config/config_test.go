package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/snapsync")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HostBaseURL != "https://api.github.com" {
		t.Errorf("unexpected host base URL %s", cfg.HostBaseURL)
	}
	if cfg.SmallFileThreshold != DefaultSmallFileThreshold {
		t.Errorf("unexpected threshold %d", cfg.SmallFileThreshold)
	}
	if cfg.MaxBatchBytes != DefaultMaxBatchBytes {
		t.Errorf("unexpected batch bytes %d", cfg.MaxBatchBytes)
	}
	if cfg.MaxFilesPerBatch != DefaultMaxFilesPerBatch {
		t.Errorf("unexpected batch files %d", cfg.MaxFilesPerBatch)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unexpected log level %s", cfg.LogLevel)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "snap.db")
	t.Setenv("SMALL_FILE_THRESHOLD", "1048576")
	t.Setenv("MAX_BATCH_BYTES", "2097152")
	t.Setenv("MAX_FILES_PER_BATCH", "5")
	t.Setenv("GITHOST_BASE_URL", "https://git.internal.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SmallFileThreshold != 1048576 {
		t.Errorf("unexpected threshold %d", cfg.SmallFileThreshold)
	}
	if cfg.MaxBatchBytes != 2097152 {
		t.Errorf("unexpected batch bytes %d", cfg.MaxBatchBytes)
	}
	if cfg.MaxFilesPerBatch != 5 {
		t.Errorf("unexpected batch files %d", cfg.MaxFilesPerBatch)
	}
	if cfg.HostBaseURL != "https://git.internal.example" {
		t.Errorf("unexpected host base URL %s", cfg.HostBaseURL)
	}
}

func TestLoad_RejectsBatchSmallerThanThreshold(t *testing.T) {
	t.Setenv("DATABASE_URL", "snap.db")
	t.Setenv("SMALL_FILE_THRESHOLD", "4194304")
	t.Setenv("MAX_BATCH_BYTES", "1048576")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when MAX_BATCH_BYTES < SMALL_FILE_THRESHOLD")
	}
}
