package ctd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func withOSRelease(t *testing.T, content string) {
	t.Helper()
	old := osReleasePath
	osReleasePath = filepath.Join(t.TempDir(), "os-release")
	if content != "" {
		if err := os.WriteFile(osReleasePath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() { osReleasePath = old })
}

func TestDetectOSVersion_PrettyName(t *testing.T) {
	withOSRelease(t, "NAME=Fedora\nPRETTY_NAME=\"Fedora Linux 41\"\n")

	got := DetectOSVersion()
	if !strings.HasPrefix(got, "Fedora Linux 41") {
		t.Errorf("DetectOSVersion = %q", got)
	}
}

func TestDetectOSVersion_Fallback(t *testing.T) {
	withOSRelease(t, "")

	want := runtime.GOOS + "/" + runtime.GOARCH
	if got := DetectOSVersion(); got != want {
		t.Errorf("DetectOSVersion = %q, want %q", got, want)
	}
}

// captureDebugLog routes the default logger into a buffer at debug level.
func captureDebugLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestDetectOSVersion_FallbackLogsAtDebug(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing file", "", "os-release not readable"},
		{"no pretty name", "NAME=Fedora\n", "os-release has no PRETTY_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withOSRelease(t, tt.content)
			buf := captureDebugLog(t)

			want := runtime.GOOS + "/" + runtime.GOARCH
			if got := DetectOSVersion(); got != want {
				t.Errorf("DetectOSVersion = %q, want %q", got, want)
			}
			if !strings.Contains(buf.String(), "level=DEBUG") || !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log = %q, want debug record containing %q", buf.String(), tt.want)
			}
		})
	}
}

func TestStaticMetadata(t *testing.T) {
	m := StaticMetadata{}
	if m.GameVersion() != UnknownVersion {
		t.Errorf("GameVersion = %q, want %q", m.GameVersion(), UnknownVersion)
	}
	if _, ok := m.ExtenderVersion(); ok {
		t.Error("empty extender version should be absent")
	}

	m = StaticMetadata{Game: "1.6.1170", Extender: "2.2.6", OS: "Windows 11"}
	if m.GameVersion() != "1.6.1170" {
		t.Errorf("GameVersion = %q", m.GameVersion())
	}
	if v, ok := m.ExtenderVersion(); !ok || v != "2.2.6" {
		t.Errorf("ExtenderVersion = %q, %v", v, ok)
	}
	if v, ok := m.OSVersion(); !ok || v != "Windows 11" {
		t.Errorf("OSVersion = %q, %v", v, ok)
	}
}
