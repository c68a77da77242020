// breakpad.go parses Breakpad text symbol files.

package symbols

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

const maxLineSize = 1 << 20

// ParseFile parses the symbol file at path.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeIO, "failed to open symbol file", err,
			map[string]any{"path": path})
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeValidation, "failed to parse symbol file", err,
			map[string]any{"path": path})
	}
	return t, nil
}

// Parse reads Breakpad text symbols. Only FUNC and PUBLIC records are used;
// FUNC records take precedence over PUBLIC records at the same address.
//
//	MODULE windows x86_64 <id> game.pdb
//	FUNC [m] <address> <size> <param_size> <name>
//	PUBLIC [m] <address> <param_size> <name>
func Parse(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var funcs, publics []Symbol
	sawModule := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if !sawModule {
			if !strings.HasPrefix(line, "MODULE ") {
				return nil, cerrors.New(cerrors.ErrCodeValidation, "missing MODULE header")
			}
			sawModule = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "FUNC "):
			if s, ok := parseRecord(line[len("FUNC "):], 3); ok {
				funcs = append(funcs, s)
			}
		case strings.HasPrefix(line, "PUBLIC "):
			if s, ok := parseRecord(line[len("PUBLIC "):], 2); ok {
				publics = append(publics, s)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeIO, "failed to read symbols", err)
	}
	if !sawModule {
		return nil, cerrors.New(cerrors.ErrCodeValidation, "empty symbol file")
	}

	return NewTable(append(funcs, publics...)), nil
}

// parseRecord parses "[m] <address> <n-1 numeric fields> <name>". The name is
// the remainder of the line and may contain spaces.
func parseRecord(rest string, numeric int) (Symbol, bool) {
	rest = strings.TrimPrefix(rest, "m ")
	parts := strings.SplitN(rest, " ", numeric+1)
	if len(parts) != numeric+1 || parts[numeric] == "" {
		return Symbol{}, false
	}
	addr, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return Symbol{}, false
	}
	return Symbol{RVA: uint32(addr), Name: parts[numeric]}, true
}
