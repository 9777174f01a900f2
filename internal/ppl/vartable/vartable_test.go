package vartable

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyboard/icyboard/internal/ppl/value"
)

// TestWriteReadRoundTrip exercises spec.md §8.1's codec invariant:
// write(read(b)) == b, and by extension read(write(t)) reproduces every
// field a real PPE consumer can observe (header, kind, value) for the
// scalar, string, and procedure payload shapes Read/Write both handle.
func TestWriteReadRoundTrip(t *testing.T) {
	const version = 340

	table := &Table{
		Version: version,
		Entries: []*Entry{
			{
				Header: Header{ID: 1, VariableType: VTInteger},
				Kind:   Constant,
				Value:  value.NewInteger(42),
			},
			{
				Header: Header{ID: 2, VariableType: VTString},
				Kind:   Constant,
				Value:  value.NewString("hello"),
			},
			{
				Header: Header{ID: 3, VariableType: VTBoolean},
				Kind:   Constant,
				Value:  value.NewBoolean(true),
			},
			{
				Header: Header{ID: 4, VariableType: VTProcedure},
				Kind:   ProcedureEntry,
				Procedure: ProcedureValue{
					Parameters:     2,
					LocalVariables: 1,
					StartOffset:    17,
					FirstVarID:     5,
					PassFlags:      0b10,
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))

	firstWrite := append([]byte(nil), buf.Bytes()...)

	got, err := Read(bytes.NewReader(firstWrite), version)
	require.NoError(t, err)
	require.Len(t, got.Entries, len(table.Entries))

	assert.Equal(t, int64(42), got.Entries[0].Value.ToInt64())
	assert.Equal(t, "hello", got.Entries[1].Value.ToPPLString())
	assert.Equal(t, true, got.Entries[2].Value.ToBool())
	assert.Equal(t, ProcedureEntry, got.Entries[3].Kind)
	assert.Equal(t, uint8(2), got.Entries[3].Procedure.Parameters)
	assert.Equal(t, uint16(17), got.Entries[3].Procedure.StartOffset)
	assert.True(t, got.Entries[3].Procedure.ByRef(1))
	assert.False(t, got.Entries[3].Procedure.ByRef(0))

	// write(read(b)) == b: serializing the table Read just produced must
	// reproduce the exact bytes it was read from.
	var second bytes.Buffer
	require.NoError(t, got.Write(&second))
	assert.Equal(t, firstWrite, second.Bytes())
}

// TestReadEmptyTable covers the zero-entry edge case the count-prefix
// format requires special handling for.
func TestReadEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Table{Version: 340}).Write(&buf))
	got, err := Read(bytes.NewReader(buf.Bytes()), 340)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

// TestReportUsagePromotesConstantOnce mirrors spec.md §3.2's lazy-promotion
// rule: a Constant slot becomes a Variable the first time a script
// references it, and stays Variable afterward.
func TestReportUsagePromotesConstantOnce(t *testing.T) {
	e := &Entry{Kind: Constant}
	e.ReportUsage()
	assert.Equal(t, Variable, e.Kind)
	e.ReportUsage()
	assert.Equal(t, Variable, e.Kind, "a second reference must not change an already-promoted slot")
}
