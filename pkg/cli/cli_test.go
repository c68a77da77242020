package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezmode-games/ctd/pkg/config"
	"github.com/ezmode-games/ctd/pkg/ctd"
)

// run executes the root command with an isolated config file and returns stdout.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{config.EnvConfig, config.EnvAPIURL, config.EnvAPIKey, config.EnvIntegrationID} {
		t.Setenv(k, "")
	}
	cfgPath := filepath.Join(t.TempDir(), "ctd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: error\n"), 0o644))

	var out, errOut bytes.Buffer
	cmd := NewCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	err := cmd.Run(context.Background(), append([]string{name, "--config", cfgPath}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeReport(t *testing.T, dir, file string) string {
	t.Helper()
	report, err := ctd.NewReportBuilder().
		GameID("skyrim-se").
		StackTrace("[0] game.exe+0x1234 (0x0000000140001234)").
		GameVersion("1.6.1170").
		CrashHash("abc123").
		Inventory(ctd.NewInventory(ctd.NewEntry("Skyrim.esm", ctd.Fingerprint{Hash: "00000000000000aa", Size: 1}))).
		CrashedAt(1_700_000_000_000).
		Build()
	require.NoError(t, err)
	b, err := report.JSON()
	require.NoError(t, err)
	return writeFile(t, dir, file, string(b))
}

func TestCommandTree(t *testing.T) {
	cmd := NewCommand()
	var names []string
	for _, c := range cmd.Commands {
		names = append(names, c.Name)
		assert.NotEmpty(t, c.Usage, c.Name)
	}
	assert.Equal(t, []string{"fingerprint", "scan", "symbolize", "validate", "submit", "config"}, names)
}

func TestFingerprintCmd(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Skyrim.esm", "master file")
	want, err := ctd.FileFingerprint(path)
	require.NoError(t, err)

	out, _, err := run(t, "fingerprint", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, want.Hash), out)
	assert.Contains(t, out, path)

	out, _, err = run(t, "fingerprint", "--json", path)
	require.NoError(t, err)
	var results []fingerprintResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, want.Hash, results[0].Hash)
	assert.Equal(t, want.Size, results[0].Size)

	_, _, err = run(t, "fingerprint")
	assert.Error(t, err)
}

func TestScanCmd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Skyrim.esm", "a")
	writeFile(t, root, "Data/Update.esm", "b")
	rules := writeFile(t, t.TempDir(), "rules.yaml", "rules:\n  - name: plugins\n    dir: Data\n    extensions: [esm]\n")

	out, _, err := run(t, "scan", "--root", root, "--rules", rules)
	require.NoError(t, err)

	inv, err := ctd.ParseInventory(ctd.SchemaFingerprinted, strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, 2, inv.Len())
	assert.Equal(t, "Skyrim.esm", inv.Entries[0].Name)
	assert.Equal(t, "Update.esm", inv.Entries[1].Name)

	out, _, err = run(t, "scan", "--root", root, "--rules", rules, "--legacy")
	require.NoError(t, err)
	assert.NotContains(t, out, "fileHash")

	_, _, err = run(t, "scan")
	assert.Error(t, err, "root is required")
}

func TestSymbolizeCmd(t *testing.T) {
	symDir := t.TempDir()
	writeFile(t, symDir, "game.sym", "MODULE windows x86_64 ID game.pdb\nFUNC 1000 400 0 Actor::Update\n")
	trace := "[0] game.exe+0x1234 (0x0000000140001234)\n" +
		"noise\n" +
		"[1] other.dll+0x10 (0x0000000180000010)\n"
	tracePath := writeFile(t, t.TempDir(), "trace.txt", trace)

	out, _, err := run(t, "symbolize", "--symbols", symDir, "--hash", tracePath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[0] game.exe+0x1234 (Actor::Update)", lines[0])
	assert.Equal(t, "[1] other.dll+0x10", lines[1])
	assert.Equal(t, "crashHash: "+ctd.CrashHash(
		"[0] game.exe+0x1234 (0x0000000140001234)\n[1] other.dll+0x10 (0x0000000180000010)"), lines[2])
}

func TestSymbolizeCmd_NoFrames(t *testing.T) {
	path := writeFile(t, t.TempDir(), "trace.txt", "nothing here\n")
	_, _, err := run(t, "symbolize", path)
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	good := writeReport(t, dir, "good.json")
	bad := writeFile(t, dir, "bad.json", `{"schemaVersion":2,"gameId":"","stackTrace":"x","gameVersion":"1","loadOrderJson":"[]","pluginCount":0,"crashedAt":1}`)

	out, _, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "good.json: ok (schema v2, 1 plugins")

	out, _, err = run(t, "validate", good, bad)
	assert.Error(t, err)
	assert.Contains(t, out, "bad.json: invalid")
	assert.Contains(t, out, "game_id")
}

func TestSubmitCmd(t *testing.T) {
	var requests atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		auth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/crashes", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"crash-42","shareToken":"s3cr3t"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	a := writeReport(t, dir, "a.json")
	b := writeReport(t, dir, "b.json")

	out, _, err := run(t, "submit",
		"--url", srv.URL, "--path", "/v1/crashes", "--api-key", "k",
		"--rate", "100", "--burst", "2", a, b)
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, "Bearer k", auth.Load())
	assert.Contains(t, out, "a.json: crash-42 (share s3cr3t)")
	assert.Contains(t, out, "b.json: crash-42")
}

func TestSubmitCmd_CollectorRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	report := writeReport(t, t.TempDir(), "a.json")
	_, _, err := run(t, "submit", "--url", srv.URL, report)
	assert.Error(t, err)
}

func TestSubmitCmd_DryRun(t *testing.T) {
	report := writeReport(t, t.TempDir(), "a.json")
	out, errOut, err := run(t, "submit", "--dry-run", report)
	require.NoError(t, err)
	assert.Contains(t, out, "a.json: not sent")
	assert.Contains(t, errOut, "CRASH")
	assert.Contains(t, errOut, "skyrim-se 1.6.1170")
}

func TestConfigCmd(t *testing.T) {
	out, _, err := run(t, "config", "example")
	require.NoError(t, err)
	assert.Equal(t, config.Example(), out)

	out, _, err = run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, config.DefaultAPIURL)
}
