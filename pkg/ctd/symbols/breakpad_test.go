package symbols

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSym = `MODULE windows x86_64 0123456789ABCDEF0123456789ABCDEF1 game.pdb
INFO CODE_ID 5F3E2A1B2000 game.exe
FILE 0 c:\src\game\main.cpp
FUNC 1000 40 0 WinMain
1000 10 12 0
FUNC m 1100 20 8 Actor::Update(float)
PUBLIC 1100 0 Actor_Update_public
PUBLIC 2000 0 __scrt_common_main
STACK WIN 4 1000 40 0 0 0 0 0 0 1
`

func TestParse_FuncAndPublic(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleSym))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	name, ok := table.Lookup(0x1010)
	require.True(t, ok)
	assert.Equal(t, "WinMain", name)

	name, ok = table.Lookup(0x1100)
	require.True(t, ok)
	assert.Equal(t, "Actor::Update(float)", name, "FUNC wins over PUBLIC at the same address")

	name, ok = table.Lookup(0x2500)
	require.True(t, ok)
	assert.Equal(t, "__scrt_common_main", name)

	_, ok = table.Lookup(0xFFF)
	assert.False(t, ok)
}

func TestParse_CRLF(t *testing.T) {
	table, err := Parse(strings.NewReader("MODULE windows x86 ID a.pdb\r\nFUNC 10 4 0 f\r\n"))
	require.NoError(t, err)
	name, ok := table.Lookup(0x10)
	require.True(t, ok)
	assert.Equal(t, "f", name)
}

func TestParse_SkipsMalformedRecords(t *testing.T) {
	table, err := Parse(strings.NewReader("MODULE linux x86_64 ID a\nFUNC zz 4 0 bad\nFUNC 10 4\nPUBLIC 20 0 good\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestParse_RequiresModuleHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("FUNC 10 4 0 f\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(""))
	assert.Error(t, err)
}
