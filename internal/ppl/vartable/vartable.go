// Package vartable implements the PPL variable-table binary codec: the
// per-entry header layout, the legacy 11-byte encryption chunking, and the
// CP437 string encoding used by every PPE version from 100 through 400.
//
// The encryption keystream in the original PCBoard/icy_board codebase lives
// outside this retrieval pack's filtered source set (crypt.rs was not
// included), so the keystream generator here is a from-spec reconstruction:
// a deterministic, version-seeded repeating 11-byte XOR key, matching
// spec.md §3.3's description ("repeating keystream derived from version")
// without claiming bit-for-bit compatibility with the original cipher.
package vartable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"

	"github.com/icyboard/icyboard/internal/ppl/value"
)

// VariableType is the on-disk type tag stored in a variable-table header.
type VariableType uint8

const (
	VTBoolean VariableType = iota
	VTUnsigned
	VTDate
	VTEDate
	VTInteger
	VTMoney
	VTFloat
	VTDouble
	VTString
	VTTime
	VTByte
	VTWord
	VTSByte
	VTSWord
	VTBigStr
	VTFunction
	VTProcedure
	VTDDate
	VTTable
	VTMessageAreaID
	VTUserData
)

// toValueKind maps a scalar on-disk VariableType to its value.Kind. Function
// and Procedure entries never reach this: they have their own payload shape.
func (vt VariableType) toValueKind() value.Kind {
	switch vt {
	case VTBoolean:
		return value.Boolean
	case VTUnsigned:
		return value.Unsigned
	case VTDate:
		return value.Date
	case VTEDate:
		return value.EDate
	case VTInteger:
		return value.Integer
	case VTMoney:
		return value.Money
	case VTFloat:
		return value.Float
	case VTDouble:
		return value.Double
	case VTString:
		return value.String
	case VTTime:
		return value.Time
	case VTByte:
		return value.Byte
	case VTWord:
		return value.Word
	case VTSByte:
		return value.SByte
	case VTSWord:
		return value.SWord
	case VTBigStr:
		return value.BigStr
	case VTDDate:
		return value.DDate
	case VTTable:
		return value.TableKind
	case VTMessageAreaID:
		return value.MessageAreaIDKind
	case VTUserData:
		return value.UserData
	default:
		return value.Integer
	}
}

// EntryKind is the derived role of a table slot (spec.md §3.2 "Entry kind
// (derived on load, not stored)").
type EntryKind uint8

const (
	Constant EntryKind = iota
	UserVariable
	Variable
	LocalVariable
	FunctionResult
	Parameter
	FunctionEntry
	ProcedureEntry
)

// Header is the fixed 11-byte per-entry header (spec.md §3.2).
type Header struct {
	ID           int
	Dim          uint8
	VectorSize   int
	MatrixSize   int
	CubeSize     int
	VariableType VariableType
	Flags        uint8
}

const headerSize = 11

func decodeHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, fmt.Errorf("vartable: header buffer too short: %d", len(b))
	}
	dim := b[2]
	if dim > 3 {
		dim = 3
	}
	return Header{
		ID:           int(binary.LittleEndian.Uint16(b[0:2])),
		Dim:          dim,
		VectorSize:   int(binary.LittleEndian.Uint16(b[3:5])),
		MatrixSize:   int(binary.LittleEndian.Uint16(b[5:7])),
		CubeSize:     int(binary.LittleEndian.Uint16(b[7:9])),
		VariableType: VariableType(b[9]),
		Flags:        b[10],
	}, nil
}

func (h Header) encode() []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(b[0:2], uint16(h.ID))
	b[2] = h.Dim
	binary.LittleEndian.PutUint16(b[3:5], uint16(h.VectorSize))
	binary.LittleEndian.PutUint16(b[5:7], uint16(h.MatrixSize))
	binary.LittleEndian.PutUint16(b[7:9], uint16(h.CubeSize))
	b[9] = byte(h.VariableType)
	b[10] = h.Flags
	return b
}

// FunctionValue is a Function entry's payload (spec.md §3.2).
type FunctionValue struct {
	Parameters     uint8
	LocalVariables uint8
	StartOffset    uint16
	FirstVarID     int16
	ReturnVar      int16
}

// ProcedureValue is a Procedure entry's payload. PassFlags bit i set means
// parameter i is passed by reference.
type ProcedureValue struct {
	Parameters     uint8
	LocalVariables uint8
	StartOffset    uint16
	FirstVarID     int16
	PassFlags      uint16
}

func (pv ProcedureValue) ByRef(paramIndex int) bool {
	return pv.PassFlags&(1<<uint(paramIndex)) != 0
}

// Entry is one variable-table slot.
type Entry struct {
	Header    Header
	Name      string
	Kind      EntryKind
	Value     value.Value
	Function  FunctionValue
	Procedure ProcedureValue
}

// ReportUsage promotes a Constant slot to Variable the first time a script
// references it (spec.md §3.2: "UserVariable is allocated only when the
// script references one" — the same lazy-promotion rule applies to ordinary
// globals).
func (e *Entry) ReportUsage() {
	if e.Kind == Constant {
		e.Kind = Variable
	}
}

// Table is the full ordered variable table of one compiled script. Entries
// are indexed by id-1 (1-based ids, per spec.md §3.2).
type Table struct {
	Version int
	Entries []*Entry
}

func (t *Table) Len() int { return len(t.Entries) }

// Get returns the entry with the given 1-based id.
func (t *Table) Get(id int) (*Entry, bool) {
	if id < 1 || id > len(t.Entries) {
		return nil, false
	}
	return t.Entries[id-1], true
}

var cp437 = charmap.CodePage437

func decodeCP437(b []byte) string {
	out := make([]rune, 0, len(b))
	for _, c := range b {
		r := cp437.DecodeByte(c)
		out = append(out, r)
	}
	return string(out)
}

func encodeCP437(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cp437.EncodeRune(r)
		if !ok {
			b = byte(r)
		}
		out = append(out, b)
	}
	return out
}

// keystream derives the repeating 11-byte XOR key for version v.
func keystream(version int) [headerSize]byte {
	var k [headerSize]byte
	seed := uint32(version)*2654435761 + 0x9E3779B9
	for i := range k {
		seed = seed*1664525 + 1013904223
		k[i] = byte(seed >> 24)
	}
	return k
}

// cryptChunk XORs buf in place against the repeating keystream for version.
// The cipher is an involution, so the same call both encrypts and decrypts.
func cryptChunk(buf []byte, version int) {
	if version < 200 {
		return
	}
	key := keystream(version)
	for i := range buf {
		buf[i] ^= key[i%headerSize]
	}
}

// Read parses a variable table from r, per spec.md §3.2-§3.3: a u16 LE entry
// count, followed by that many entries serialized in descending id order,
// each starting with an encrypted 11-byte header.
func Read(r io.Reader, version int) (*Table, error) {
	br := bufio.NewReader(r)
	var countBuf [2]byte
	if _, err := io.ReadFull(br, countBuf[:]); err != nil {
		return nil, fmt.Errorf("vartable: reading entry count: %w", err)
	}
	maxVar := int(binary.LittleEndian.Uint16(countBuf[:]))
	t := &Table{Version: version, Entries: make([]*Entry, maxVar)}
	if maxVar == 0 {
		return t, nil
	}

	for count := maxVar - 1; count >= 0; count-- {
		hdrBuf := make([]byte, headerSize)
		if _, err := io.ReadFull(br, hdrBuf); err != nil {
			return nil, fmt.Errorf("vartable: reading header for slot %d: %w", count, err)
		}
		cryptChunk(hdrBuf, version)
		hdr, err := decodeHeader(hdrBuf)
		if err != nil {
			return nil, err
		}

		entry := &Entry{Header: hdr}
		switch hdr.VariableType {
		case VTString:
			if err := readStringPayload(br, version, hdr, entry); err != nil {
				return nil, err
			}
			entry.Kind = Constant

		case VTFunction, VTProcedure:
			if version <= 100 {
				return nil, fmt.Errorf("vartable: functions unsupported at version %d", version)
			}
			if err := readFunctionPayload(br, version, hdr, entry); err != nil {
				return nil, err
			}
			if hdr.VariableType == VTFunction {
				entry.Kind = FunctionEntry
			} else {
				entry.Kind = ProcedureEntry
			}

		default:
			if err := readScalarPayload(br, version, hdr, entry); err != nil {
				return nil, err
			}
			entry.Kind = Constant
		}

		if count >= len(t.Entries) {
			return nil, fmt.Errorf("vartable: slot index %d out of range", count)
		}
		t.Entries[count] = entry
	}

	classifyFunctionSlots(t)
	return t, nil
}

func readStringPayload(br *bufio.Reader, version int, hdr Header, entry *Entry) error {
	var lenBuf [2]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return fmt.Errorf("vartable: reading string length: %w", err)
	}
	n := int(binary.LittleEndian.Uint16(lenBuf[:]))
	if n == 0 {
		entry.Value = value.NewString("")
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return fmt.Errorf("vartable: reading string body: %w", err)
	}
	cryptChunk(buf, version)
	if hdr.Dim > 0 {
		// Arrays store no inline text (spec.md §3.2); the length field is
		// written as zero for arrays, so n==0 is the common case above.
		return nil
	}
	if len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	entry.Value = value.NewString(decodeCP437(buf))
	return nil
}

func readFunctionPayload(br *bufio.Reader, version int, hdr Header, entry *Entry) error {
	size := 10
	if version < 340 {
		size = 12
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(br, buf); err != nil {
		return fmt.Errorf("vartable: reading function payload: %w", err)
	}
	cryptChunk(buf, version)
	if version < 340 {
		buf = buf[2:] // two junk VTABLE bytes PCBoard stores by accident
	}
	vtype := VariableType(buf[0])
	if vtype != hdr.VariableType {
		return fmt.Errorf("vartable: function header type mismatch: %v != %v", vtype, hdr.VariableType)
	}
	body := buf[2:10]
	params := body[0]
	locals := body[1]
	startOff := binary.LittleEndian.Uint16(body[2:4])
	firstVar := int16(binary.LittleEndian.Uint16(body[4:6]))
	tail := int16(binary.LittleEndian.Uint16(body[6:8]))
	if hdr.VariableType == VTFunction {
		entry.Function = FunctionValue{Parameters: params, LocalVariables: locals, StartOffset: startOff, FirstVarID: firstVar, ReturnVar: tail}
	} else {
		entry.Procedure = ProcedureValue{Parameters: params, LocalVariables: locals, StartOffset: startOff, FirstVarID: firstVar, PassFlags: uint16(tail)}
	}
	return nil
}

func readScalarPayload(br *bufio.Reader, version int, hdr Header, entry *Entry) error {
	if version <= 100 {
		buf := make([]byte, 6)
		if _, err := io.ReadFull(br, buf); err != nil {
			return fmt.Errorf("vartable: reading v100 scalar payload: %w", err)
		}
		vtype := VariableType(buf[0])
		raw := int64(int32(binary.LittleEndian.Uint32(buf[2:6])))
		entry.Value = decodeScalar(vtype, raw)
		return nil
	}

	size := 10
	if version < 340 {
		size = 12
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(br, buf); err != nil {
		return fmt.Errorf("vartable: reading scalar payload: %w", err)
	}
	cryptChunk(buf, version)
	if version < 340 {
		buf = buf[2:]
	}
	vtype := VariableType(buf[0])
	raw := int64(binary.LittleEndian.Uint64(buf[2:10]))
	if hdr.Dim > 0 {
		arr, err := value.NewArray(vtype.toValueKind(), axisSizes(hdr)...)
		if err != nil {
			return fmt.Errorf("vartable: allocating array for id %d: %w", hdr.ID, err)
		}
		entry.Value = arr
		return nil
	}
	entry.Value = decodeScalar(vtype, raw)
	return nil
}

func axisSizes(hdr Header) []int {
	switch hdr.Dim {
	case 1:
		return []int{hdr.VectorSize}
	case 2:
		return []int{hdr.VectorSize, hdr.MatrixSize}
	case 3:
		return []int{hdr.VectorSize, hdr.MatrixSize, hdr.CubeSize}
	default:
		return nil
	}
}

func decodeScalar(vt VariableType, raw int64) value.Value {
	switch vt {
	case VTBoolean:
		return value.NewBoolean(raw != 0)
	case VTUnsigned:
		return value.NewUnsigned(uint64(raw))
	case VTDate:
		return value.NewDate(uint32(raw))
	case VTEDate:
		return value.NewEDate(uint32(raw))
	case VTInteger:
		return value.NewInteger(int32(raw))
	case VTMoney:
		return value.NewMoney(int32(raw))
	case VTFloat:
		return value.NewFloat(float32FromBits(raw))
	case VTDouble:
		return value.NewDouble(float64FromBits(raw))
	case VTTime:
		return value.NewTime(int32(raw))
	case VTByte:
		return value.NewByte(uint8(raw))
	case VTWord:
		return value.NewWord(uint16(raw))
	case VTSByte:
		return value.NewSByte(int8(raw))
	case VTSWord:
		return value.NewSWord(int16(raw))
	case VTDDate:
		return value.NewDDate(raw)
	case VTMessageAreaID:
		return value.NewMessageAreaID(int32(raw>>32), int32(raw))
	case VTUserData:
		return value.NewUserData(uint8(raw>>56), raw)
	default:
		return value.NewInteger(int32(raw))
	}
}

func float32FromBits(raw int64) float32 {
	return float32FromUint32(uint32(raw))
}

// classifyFunctionSlots walks every Function/Procedure entry and reclassifies
// the variable-table slots it owns — parameters, locals, and (for functions)
// the return-value slot — per spec.md §3.2's EntryKind derivation rule.
func classifyFunctionSlots(t *Table) {
	for k := len(t.Entries) - 1; k >= 0; k-- {
		e := t.Entries[k]
		if e == nil {
			continue
		}
		switch e.Header.VariableType {
		case VTFunction:
			fv := e.Function
			first := int(fv.FirstVarID)
			last := first + int(fv.LocalVariables) + int(fv.Parameters)
			retSlot := int(fv.ReturnVar) - 1
			if fv.StartOffset == 0 {
				continue
			}
			for j, idx := 0, first; idx < last && idx < len(t.Entries); j, idx = j+1, idx+1 {
				target := t.Entries[idx]
				if target == nil {
					continue
				}
				switch {
				case idx == retSlot:
					target.Kind = FunctionResult
				case j < int(fv.Parameters):
					target.Kind = Parameter
				default:
					target.Kind = LocalVariable
				}
			}
		case VTProcedure:
			pv := e.Procedure
			first := int(pv.FirstVarID)
			last := first + int(pv.LocalVariables) + int(pv.Parameters)
			if pv.StartOffset == 0 {
				continue
			}
			for j, idx := 0, first; idx < last && idx < len(t.Entries); j, idx = j+1, idx+1 {
				target := t.Entries[idx]
				if target == nil {
					continue
				}
				if j < int(pv.Parameters) {
					target.Kind = Parameter
				} else {
					target.Kind = LocalVariable
				}
			}
		}
	}
}

// Write serializes t back to its on-disk form, in descending id order
// (spec.md §3.3).
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(t.Entries)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}
	for i := len(t.Entries) - 1; i >= 0; i-- {
		e := t.Entries[i]
		if e == nil {
			continue
		}
		if err := writeEntry(bw, t.Version, e); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeEntry(w io.Writer, version int, e *Entry) error {
	hdrBuf := e.Header.encode()
	cryptChunk(hdrBuf, version)
	if _, err := w.Write(hdrBuf); err != nil {
		return err
	}

	switch e.Header.VariableType {
	case VTFunction, VTProcedure:
		return writeFunctionPayload(w, version, e)
	case VTString:
		return writeStringPayload(w, version, e)
	default:
		return writeScalarPayload(w, version, e)
	}
}

func writeFunctionPayload(w io.Writer, version int, e *Entry) error {
	var body [8]byte
	var params, locals uint8
	var startOff uint16
	var firstVar int16
	var tail uint16
	if e.Header.VariableType == VTFunction {
		fv := e.Function
		params, locals, startOff, firstVar, tail = fv.Parameters, fv.LocalVariables, fv.StartOffset, fv.FirstVarID, uint16(fv.ReturnVar)
	} else {
		pv := e.Procedure
		params, locals, startOff, firstVar, tail = pv.Parameters, pv.LocalVariables, pv.StartOffset, pv.FirstVarID, pv.PassFlags
	}
	body[0], body[1] = params, locals
	binary.LittleEndian.PutUint16(body[2:4], startOff)
	binary.LittleEndian.PutUint16(body[4:6], uint16(firstVar))
	binary.LittleEndian.PutUint16(body[6:8], tail)

	var buf []byte
	if version < 340 {
		buf = make([]byte, 2, 12)
	} else {
		buf = make([]byte, 0, 10)
	}
	buf = append(buf, byte(e.Header.VariableType), 0)
	buf = append(buf, body[:]...)
	cryptChunk(buf, version)
	_, err := w.Write(buf)
	return err
}

func writeStringPayload(w io.Writer, version int, e *Entry) error {
	if e.Header.Dim > 0 {
		_, err := w.Write([]byte{0, 0})
		return err
	}
	s := e.Value.ToPPLString()
	body := encodeCP437(s)
	body = append(body, 0)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	cryptChunk(body, version)
	_, err := w.Write(body)
	return err
}

func writeScalarPayload(w io.Writer, version int, e *Entry) error {
	raw := encodeScalar(e.Header.VariableType, e.Value)
	if version <= 100 {
		var buf [6]byte
		buf[0] = byte(e.Header.VariableType)
		binary.LittleEndian.PutUint32(buf[2:6], uint32(int32(raw)))
		_, err := w.Write(buf[:])
		return err
	}
	var buf []byte
	if version < 340 {
		buf = make([]byte, 2, 12)
	} else {
		buf = make([]byte, 0, 10)
	}
	buf = append(buf, byte(e.Header.VariableType), 0)
	var valBuf [8]byte
	binary.LittleEndian.PutUint64(valBuf[:], uint64(raw))
	buf = append(buf, valBuf[:]...)
	cryptChunk(buf, version)
	_, err := w.Write(buf)
	return err
}

func encodeScalar(vt VariableType, v value.Value) int64 {
	switch vt {
	case VTFloat:
		return int64(float32Bits(float32(v.ToFloat64())))
	case VTDouble:
		return int64(float64Bits(v.ToFloat64()))
	case VTMessageAreaID:
		area := v.Area()
		return int64(area.Conference)<<32 | int64(uint32(area.Area))
	default:
		return v.ToInt64()
	}
}
