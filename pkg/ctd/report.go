// report.go defines the crash report record and its validating builder.

package ctd

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// Field bounds enforced by Build. Lengths count characters.
const (
	MaxStackTraceLen      = 100_000
	MaxGameVersionLen     = 50
	MaxPluginCount        = 10_000
	MaxCrashHashLen       = 64
	MaxExceptionCodeLen   = 50
	MaxExceptionAddrLen   = 50
	MaxFaultingModuleLen  = 255
	MaxExtenderVersionLen = 50
	MaxOSVersionLen       = 100
	MaxNotesLen           = 5_000
)

// CrashReport is the immutable record sent to the collector. A value returned
// by ReportBuilder.Build always satisfies every field bound.
type CrashReport struct {
	SchemaVersion         SchemaVersion `json:"schemaVersion"`
	GameID                string        `json:"gameId"`
	StackTrace            string        `json:"stackTrace"`
	CrashHash             *string       `json:"crashHash,omitempty"`
	ExceptionCode         *string       `json:"exceptionCode,omitempty"`
	ExceptionAddress      *string       `json:"exceptionAddress,omitempty"`
	FaultingModule        *string       `json:"faultingModule,omitempty"`
	GameVersion           string        `json:"gameVersion"`
	ScriptExtenderVersion *string       `json:"scriptExtenderVersion,omitempty"`
	OSVersion             *string       `json:"osVersion,omitempty"`
	LoadOrderJSON         string        `json:"loadOrderJson"`
	PluginCount           uint32        `json:"pluginCount"`
	CrashedAt             int64         `json:"crashedAt"`
	Notes                 *string       `json:"notes,omitempty"`
}

// JSON serializes the report in the collector's wire format.
func (r *CrashReport) JSON() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInternal, "failed to serialize report", err)
	}
	return b, nil
}

// Deref returns the value of an optional field, or "" when absent.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Receipt is the collector's acknowledgement of a stored report.
type Receipt struct {
	ID         string `json:"id"`
	ShareToken string `json:"shareToken"`
}

// ReportBuilder accumulates report fields. Nothing is validated until Build.
type ReportBuilder struct {
	gameID           *string
	stackTrace       *string
	crashHash        *string
	exceptionCode    *string
	exceptionAddress *string
	faultingModule   *string
	gameVersion      *string
	extenderVersion  *string
	osVersion        *string
	inventory        *Inventory
	crashedAt        *int64
	notes            *string
}

// NewReportBuilder returns an empty builder.
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

func (b *ReportBuilder) GameID(v string) *ReportBuilder           { b.gameID = &v; return b }
func (b *ReportBuilder) StackTrace(v string) *ReportBuilder       { b.stackTrace = &v; return b }
func (b *ReportBuilder) CrashHash(v string) *ReportBuilder        { b.crashHash = &v; return b }
func (b *ReportBuilder) ExceptionCode(v string) *ReportBuilder    { b.exceptionCode = &v; return b }
func (b *ReportBuilder) ExceptionAddress(v string) *ReportBuilder { b.exceptionAddress = &v; return b }
func (b *ReportBuilder) FaultingModule(v string) *ReportBuilder   { b.faultingModule = &v; return b }
func (b *ReportBuilder) GameVersion(v string) *ReportBuilder      { b.gameVersion = &v; return b }
func (b *ReportBuilder) OSVersion(v string) *ReportBuilder        { b.osVersion = &v; return b }
func (b *ReportBuilder) Notes(v string) *ReportBuilder            { b.notes = &v; return b }

// ScriptExtenderVersion sets the version of the host's script extender.
func (b *ReportBuilder) ScriptExtenderVersion(v string) *ReportBuilder {
	b.extenderVersion = &v
	return b
}

// Inventory sets the load order. Its schema determines the report's schema version.
func (b *ReportBuilder) Inventory(inv Inventory) *ReportBuilder {
	b.inventory = &inv
	return b
}

// CrashedAt sets the crash time in milliseconds since the Unix epoch.
func (b *ReportBuilder) CrashedAt(ms int64) *ReportBuilder {
	b.crashedAt = &ms
	return b
}

// CrashedNow stamps the current wall-clock time.
func (b *ReportBuilder) CrashedNow() *ReportBuilder {
	return b.CrashedAt(time.Now().UnixMilli())
}

func validationError(field, msg string) error {
	return cerrors.NewWithContext(cerrors.ErrCodeValidation, msg, map[string]any{"field": field})
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// checkOptional validates an optional field against its maximum length.
func checkOptional(field string, v *string, max int) error {
	if v != nil && runeLen(*v) > max {
		return validationError(field, fmt.Sprintf("%s exceeds %d characters", field, max))
	}
	return nil
}

// Build validates the accumulated fields and returns the report. The error
// names the first violated constraint only.
func (b *ReportBuilder) Build() (*CrashReport, error) {
	if b.gameID == nil || *b.gameID == "" {
		return nil, validationError("game_id", "game_id is required")
	}
	if b.stackTrace == nil || *b.stackTrace == "" {
		return nil, validationError("stack_trace", "stack_trace is required")
	}
	if runeLen(*b.stackTrace) > MaxStackTraceLen {
		return nil, validationError("stack_trace",
			fmt.Sprintf("stack_trace exceeds %d characters", MaxStackTraceLen))
	}
	if b.gameVersion == nil || *b.gameVersion == "" {
		return nil, validationError("game_version", "game_version is required")
	}
	if runeLen(*b.gameVersion) > MaxGameVersionLen {
		return nil, validationError("game_version",
			fmt.Sprintf("game_version exceeds %d characters", MaxGameVersionLen))
	}
	if b.inventory == nil {
		return nil, validationError("load_order", "load_order is required")
	}
	if b.inventory.Len() > MaxPluginCount {
		return nil, validationError("plugin_count",
			fmt.Sprintf("plugin_count exceeds %d", MaxPluginCount))
	}
	if b.crashHash != nil {
		if n := runeLen(*b.crashHash); n < 1 || n > MaxCrashHashLen {
			return nil, validationError("crash_hash",
				fmt.Sprintf("crash_hash must be 1-%d characters", MaxCrashHashLen))
		}
	}
	optional := []struct {
		field string
		v     *string
		max   int
	}{
		{"exception_code", b.exceptionCode, MaxExceptionCodeLen},
		{"exception_address", b.exceptionAddress, MaxExceptionAddrLen},
		{"faulting_module", b.faultingModule, MaxFaultingModuleLen},
		{"script_extender_version", b.extenderVersion, MaxExtenderVersionLen},
		{"os_version", b.osVersion, MaxOSVersionLen},
		{"notes", b.notes, MaxNotesLen},
	}
	for _, o := range optional {
		if err := checkOptional(o.field, o.v, o.max); err != nil {
			return nil, err
		}
	}
	if b.crashedAt == nil {
		return nil, validationError("crashed_at", "crashed_at is required")
	}

	payload, err := b.inventory.Payload()
	if err != nil {
		return nil, err
	}

	return &CrashReport{
		SchemaVersion:         b.inventory.schema(),
		GameID:                *b.gameID,
		StackTrace:            *b.stackTrace,
		CrashHash:             b.crashHash,
		ExceptionCode:         b.exceptionCode,
		ExceptionAddress:      b.exceptionAddress,
		FaultingModule:        b.faultingModule,
		GameVersion:           *b.gameVersion,
		ScriptExtenderVersion: b.extenderVersion,
		OSVersion:             b.osVersion,
		LoadOrderJSON:         payload,
		PluginCount:           uint32(b.inventory.Len()),
		CrashedAt:             *b.crashedAt,
		Notes:                 b.notes,
	}, nil
}

// ParseReport decodes a serialized report and re-validates it through the
// builder. The embedded inventory payload must match the schema version.
func ParseReport(data []byte) (*CrashReport, error) {
	var wire struct {
		CrashReport
		CrashedAt *int64 `json:"crashedAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeValidation, "invalid report JSON", err)
	}
	r := wire.CrashReport

	b := NewReportBuilder().
		GameID(r.GameID).
		StackTrace(r.StackTrace).
		GameVersion(r.GameVersion)
	if r.LoadOrderJSON != "" {
		schema := r.SchemaVersion
		if schema == 0 {
			schema = CurrentSchema
		}
		inv, err := ParseInventory(schema, r.LoadOrderJSON)
		if err != nil {
			return nil, err
		}
		b.Inventory(inv)
	}
	b.crashHash = r.CrashHash
	b.exceptionCode = r.ExceptionCode
	b.exceptionAddress = r.ExceptionAddress
	b.faultingModule = r.FaultingModule
	b.extenderVersion = r.ScriptExtenderVersion
	b.osVersion = r.OSVersion
	b.notes = r.Notes
	b.crashedAt = wire.CrashedAt

	return b.Build()
}
