package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"single", "12345", []int64{12345}, false},
		{"multiple with spaces", "1, 2 ,3", []int64{1, 2, 3}, false},
		{"trailing comma", "1,2,", []int64{1, 2}, false},
		{"not a number", "1,abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAdminIDs(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAdminIDs(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAdminIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseAdminIDs(%q)[%d] = %d, want %d", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		BotToken:       "token",
		AdminIDs:       []int64{1},
		VendorMobile:   "9000000000",
		VendorPassword: "secret",
		MaxFileSizeMB:  100,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing token", func(c *Config) { c.BotToken = "" }, true},
		{"no admins", func(c *Config) { c.AdminIDs = nil }, true},
		{"missing credentials", func(c *Config) { c.VendorPassword = "" }, true},
		{"zero size cap", func(c *Config) { c.MaxFileSizeMB = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsAdmin(t *testing.T) {
	cfg := Config{AdminIDs: []int64{10, 20}}
	if !cfg.IsAdmin(10) {
		t.Error("IsAdmin(10) = false, want true")
	}
	if cfg.IsAdmin(30) {
		t.Error("IsAdmin(30) = true, want false")
	}
}

func TestConfig_MaxFileBytes(t *testing.T) {
	cfg := Config{MaxFileSizeMB: 2}
	if got := cfg.MaxFileBytes(); got != 2*1024*1024 {
		t.Errorf("MaxFileBytes() = %d, want %d", got, 2*1024*1024)
	}
}

func TestApplyYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yml")
	data := "download_path: /srv/media\nmax_file_size_mb: 500\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := Config{DownloadPath: DefaultDownloadPath, MaxFileSizeMB: DefaultMaxFileSizeMB, Port: DefaultPort}
	if err := applyYAMLOverride(&cfg, path); err != nil {
		t.Fatalf("applyYAMLOverride() error = %v", err)
	}

	if cfg.DownloadPath != "/srv/media" {
		t.Errorf("DownloadPath = %q, want /srv/media", cfg.DownloadPath)
	}
	if cfg.MaxFileSizeMB != 500 {
		t.Errorf("MaxFileSizeMB = %d, want 500", cfg.MaxFileSizeMB)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, untouched fields must keep their values", cfg.Port)
	}
}

func TestApplyYAMLOverride_MissingFileIsFine(t *testing.T) {
	cfg := Config{}
	if err := applyYAMLOverride(&cfg, filepath.Join(t.TempDir(), "absent.yml")); err != nil {
		t.Errorf("applyYAMLOverride() error = %v, want nil for missing file", err)
	}
}
