package shared

import (
	"path/filepath"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tc := []struct {
		goos    string
		program string
		wantErr bool
	}{
		{goos: "darwin", program: "open"},
		{goos: "linux", program: "xdg-open"},
		{goos: "windows", program: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "https://example.com")
			if (err != nil) != tt.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if filepath.Base(cmd.Args[0]) != tt.program {
				t.Errorf("expected %s, got %s", tt.program, cmd.Args[0])
			}
			if cmd.Args[len(cmd.Args)-1] != "https://example.com" {
				t.Errorf("expected URL as last argument, got %v", cmd.Args)
			}
		})
	}

	t.Run("OpenBrowser unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}

func TestOpenDatabase(t *testing.T) {
	t.Run("creates nested directory and migrates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "plcover.db")

		db, err := OpenDatabase(path)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("INSERT INTO kv_store (key, value) VALUES ('k', 'v')"); err != nil {
			t.Errorf("kv_store should accept inserts: %v", err)
		}
	})

	t.Run("in-memory database shares one connection", func(t *testing.T) {
		db, err := OpenDatabase(MemoryDatabase)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if stats := db.Stats(); stats.MaxOpenConnections != 1 {
			t.Errorf("expected 1 max open connection, got %d", stats.MaxOpenConnections)
		}
	})
}
