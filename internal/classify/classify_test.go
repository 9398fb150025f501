package classify

import "testing"

func TestIsBinaryPath(t *testing.T) {
	tests := []struct {
		path   string
		binary bool
	}{
		{"main.go", false},
		{"README.md", false},
		{"src/app/index.tsx", false},
		{"Makefile", false},
		{"package-lock.json", false},
		{"docs/logo.png", true},
		{"assets/photo.JPEG", true},
		{"dist/app.tar.gz", true},
		{"fonts/inter.woff2", true},
		{"media/intro.mp4", true},
		{"build/lib.so", true},
		{"bun.lockb", true},
		{"report.pdf", true},
		{"db/seed.sqlite", true},
		{"noextension", false},
		{"weird.name.with.dots.txt", false},
		{".gitignore", false},
	}

	for _, tt := range tests {
		if got := IsBinaryPath(tt.path); got != tt.binary {
			t.Errorf("IsBinaryPath(%q) = %v, want %v", tt.path, got, tt.binary)
		}
	}
}
