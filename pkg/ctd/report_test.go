package ctd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

func validBuilder() *ReportBuilder {
	return NewReportBuilder().
		GameID("skyrim-se").
		StackTrace("[0] game.exe+0x1234 (0x0000000140001234)").
		GameVersion("1.6.1170").
		Inventory(NewInventory()).
		CrashedAt(1_700_000_000_000)
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeValidation), "error %v should be VALIDATION", err)
	var se *cerrors.StructuredError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, field, se.Context["field"])
	assert.Contains(t, err.Error(), field)
}

func TestBuild_Valid(t *testing.T) {
	report, err := validBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, SchemaFingerprinted, report.SchemaVersion)
	assert.Equal(t, "skyrim-se", report.GameID)
	assert.Equal(t, "[]", report.LoadOrderJSON)
	assert.Equal(t, uint32(0), report.PluginCount)
	assert.Equal(t, int64(1_700_000_000_000), report.CrashedAt)
	assert.Nil(t, report.CrashHash)
	assert.Nil(t, report.Notes)
}

func TestBuild_MissingGameIDReportedFirst(t *testing.T) {
	// stack trace, game version, inventory and timestamp are missing too
	_, err := NewReportBuilder().Build()
	requireValidationField(t, err, "game_id")
}

func TestBuild_ValidationOrder(t *testing.T) {
	tests := []struct {
		name  string
		build func() *ReportBuilder
		field string
	}{
		{"empty game id", func() *ReportBuilder { return validBuilder().GameID("") }, "game_id"},
		{"missing stack trace", func() *ReportBuilder {
			return NewReportBuilder().GameID("g")
		}, "stack_trace"},
		{"stack trace too long", func() *ReportBuilder {
			return validBuilder().StackTrace(strings.Repeat("x", MaxStackTraceLen+1))
		}, "stack_trace"},
		{"missing game version", func() *ReportBuilder {
			return NewReportBuilder().GameID("g").StackTrace("t")
		}, "game_version"},
		{"missing inventory", func() *ReportBuilder {
			return NewReportBuilder().GameID("g").StackTrace("t").GameVersion("1")
		}, "load_order"},
		{"empty crash hash", func() *ReportBuilder { return validBuilder().CrashHash("") }, "crash_hash"},
		{"long crash hash", func() *ReportBuilder {
			return validBuilder().CrashHash(strings.Repeat("a", MaxCrashHashLen+1))
		}, "crash_hash"},
		{"long exception code", func() *ReportBuilder {
			return validBuilder().ExceptionCode(strings.Repeat("a", MaxExceptionCodeLen+1))
		}, "exception_code"},
		{"long exception address", func() *ReportBuilder {
			return validBuilder().ExceptionAddress(strings.Repeat("a", MaxExceptionAddrLen+1))
		}, "exception_address"},
		{"long faulting module", func() *ReportBuilder {
			return validBuilder().FaultingModule(strings.Repeat("a", MaxFaultingModuleLen+1))
		}, "faulting_module"},
		{"long extender version", func() *ReportBuilder {
			return validBuilder().ScriptExtenderVersion(strings.Repeat("a", MaxExtenderVersionLen+1))
		}, "script_extender_version"},
		{"long os version", func() *ReportBuilder {
			return validBuilder().OSVersion(strings.Repeat("a", MaxOSVersionLen+1))
		}, "os_version"},
		{"long notes", func() *ReportBuilder {
			return validBuilder().Notes(strings.Repeat("a", MaxNotesLen+1))
		}, "notes"},
		{"missing timestamp", func() *ReportBuilder {
			return NewReportBuilder().GameID("g").StackTrace("t").GameVersion("1").Inventory(NewInventory())
		}, "crashed_at"},
		{"timestamp checked after optional fields", func() *ReportBuilder {
			return NewReportBuilder().GameID("g").StackTrace("t").GameVersion("1").
				Inventory(NewInventory()).Notes(strings.Repeat("a", MaxNotesLen+1))
		}, "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			requireValidationField(t, err, tt.field)
		})
	}
}

func TestBuild_GameVersionBound(t *testing.T) {
	_, err := validBuilder().GameVersion(strings.Repeat("9", 51)).Build()
	requireValidationField(t, err, "game_version")

	report, err := validBuilder().GameVersion(strings.Repeat("9", 50)).Build()
	require.NoError(t, err)
	assert.Len(t, report.GameVersion, 50)
}

func TestBuild_LengthsCountCharacters(t *testing.T) {
	// 50 two-byte characters are 100 bytes but within the bound
	_, err := validBuilder().GameVersion(strings.Repeat("é", 50)).Build()
	require.NoError(t, err)
}

func TestBuild_PluginCountBound(t *testing.T) {
	entries := make([]InventoryEntry, MaxPluginCount+1)
	for i := range entries {
		entries[i] = InventoryEntry{Name: "a.esp"}
	}
	_, err := validBuilder().Inventory(NewInventory(entries...)).Build()
	requireValidationField(t, err, "plugin_count")

	report, err := validBuilder().Inventory(NewInventory(entries[:MaxPluginCount]...)).Build()
	require.NoError(t, err)
	assert.Equal(t, uint32(MaxPluginCount), report.PluginCount)
}

func TestBuild_SchemaTagging(t *testing.T) {
	legacy := NewLegacyInventory(InventoryEntry{Name: "Skyrim.esm"}.WithEnabled(true).WithIndex(0))
	report, err := validBuilder().Inventory(legacy).Build()
	require.NoError(t, err)
	assert.Equal(t, SchemaLegacy, report.SchemaVersion)
	assert.NotContains(t, report.LoadOrderJSON, "fileHash")
	assert.Equal(t, uint32(1), report.PluginCount)

	fp := Fingerprint{Hash: "0123456789abcdef", Size: 42}
	v2 := NewInventory(NewEntry("Skyrim.esm", fp).WithIndex(0))
	report, err = validBuilder().Inventory(v2).Build()
	require.NoError(t, err)
	assert.Equal(t, SchemaFingerprinted, report.SchemaVersion)
	assert.Contains(t, report.LoadOrderJSON, "fileHash")
	assert.Contains(t, report.LoadOrderJSON, "0123456789abcdef")
}

func TestBuild_ZeroValueInventoryIsCurrentSchema(t *testing.T) {
	report, err := validBuilder().Inventory(Inventory{}).Build()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchema, report.SchemaVersion)
}

func TestBuild_CrashedNow(t *testing.T) {
	report, err := validBuilder().CrashedNow().Build()
	require.NoError(t, err)
	assert.Greater(t, report.CrashedAt, int64(1_700_000_000_000))
}

func TestCrashReport_JSONFieldNames(t *testing.T) {
	report, err := validBuilder().
		CrashHash("abc").
		ExceptionCode("0xC0000005").
		ScriptExtenderVersion("2.2.6").
		Build()
	require.NoError(t, err)

	data, err := report.JSON()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	for _, k := range []string{
		"schemaVersion", "gameId", "stackTrace", "crashHash", "exceptionCode",
		"gameVersion", "scriptExtenderVersion", "loadOrderJson", "pluginCount", "crashedAt",
	} {
		assert.Contains(t, m, k)
	}
	// absent optionals are omitted, never null
	for _, k := range []string{"exceptionAddress", "faultingModule", "osVersion", "notes"} {
		assert.NotContains(t, m, k)
	}
	assert.IsType(t, "", m["loadOrderJson"], "inventory is embedded as a string")
}

func TestParseReport_RoundTripAndRevalidate(t *testing.T) {
	original, err := validBuilder().Notes("hello").Build()
	require.NoError(t, err)
	data, err := original.JSON()
	require.NoError(t, err)

	parsed, err := ParseReport(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = ParseReport([]byte(`{"gameId":"g","stackTrace":"t","gameVersion":"1","crashedAt":1}`))
	requireValidationField(t, err, "load_order")

	_, err = ParseReport([]byte(`{"gameId":"g","stackTrace":"t","gameVersion":"1","loadOrderJson":"[]"}`))
	requireValidationField(t, err, "crashed_at")
}

func TestParseReport_InvalidJSON(t *testing.T) {
	_, err := ParseReport([]byte(`{`))
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeValidation))
}
