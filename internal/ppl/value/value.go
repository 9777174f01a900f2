// Package value implements the PPL tagged-union Value model: the twenty-odd
// scalar and composite kinds a PPL variable can hold, their arithmetic and
// comparison semantics, and the implicit type-promotion rules legacy PCBoard
// scripts depend on.
//
// A Go interface-per-kind design was considered and rejected: the variable
// table stores values by numeric kind tag on disk, and the VM interpreter
// dispatches on that same tag at every opcode, so a single tagged struct
// (Kind plus a small set of payload fields) maps directly onto both without
// a boxing/unboxing layer in between.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the primitive type tag of a Value, independent of its array
// dimensionality.
type Kind uint8

const (
	Boolean Kind = iota
	Unsigned
	Date
	EDate
	Integer
	Money
	Float
	Double
	String
	Time
	Byte
	Word
	SByte
	SWord
	BigStr
	FuncHandle
	ProcHandle
	DDate
	TableKind
	MessageAreaIDKind
	UserData
)

var kindNames = [...]string{
	Boolean: "BOOLEAN", Unsigned: "UNSIGNED", Date: "DATE", EDate: "EDATE",
	Integer: "INTEGER", Money: "MONEY", Float: "FLOAT", Double: "DOUBLE",
	String: "STRING", Time: "TIME", Byte: "BYTE", Word: "WORD",
	SByte: "SBYTE", SWord: "SWORD", BigStr: "BIGSTR",
	FuncHandle: "FUNC", ProcHandle: "PROC", DDate: "DDATE",
	TableKind: "TABLE", MessageAreaIDKind: "MSGAREAID", UserData: "USERDATA",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// isStringLike reports whether k participates in string-concat `+` and
// string-promotion semantics (spec.md §3.1).
func (k Kind) isStringLike() bool { return k == String || k == BigStr }

// isFloatLike reports whether k promotes binary arithmetic to Double.
func (k Kind) isFloatLike() bool { return k == Float || k == Double }

// MessageAreaID identifies a conference:area pair (spec.md §3.1).
type MessageAreaID struct {
	Conference int32
	Area       int32
}

// Value is a single PPL scalar or array cell. Arrays are represented by
// Dim>0 plus an Elems slice; a scalar Value never populates Elems.
type Value struct {
	Kind Kind
	Dim  uint8 // 0 (scalar), 1, 2, or 3

	// Array storage: Elems is nil for scalars. Sizes holds the per-axis
	// storage size (N+1 elements per spec.md §3.1 "indexed 0..=N").
	Elems []Value
	Sizes [3]int

	i    int64 // Boolean/Unsigned/Date/EDate/Integer/Money(cents)/Time/Byte/Word/SByte/SWord/DDate/FuncHandle/ProcHandle
	f    float64
	str  string
	tbl  map[string]Value // TableKind: serialized-key -> value
	area MessageAreaID
	ud   uint8 // UserData type-id tag; payload shares the i field
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func NewBoolean(b bool) Value {
	v := Value{Kind: Boolean}
	if b {
		v.i = 1
	}
	return v
}

func NewInteger(n int32) Value     { return Value{Kind: Integer, i: int64(n)} }
func NewUnsigned(n uint64) Value   { return Value{Kind: Unsigned, i: int64(n)} }
func NewByte(n uint8) Value        { return Value{Kind: Byte, i: int64(n)} }
func NewWord(n uint16) Value       { return Value{Kind: Word, i: int64(n)} }
func NewSByte(n int8) Value        { return Value{Kind: SByte, i: int64(n)} }
func NewSWord(n int16) Value       { return Value{Kind: SWord, i: int64(n)} }
func NewDate(julian uint32) Value  { return Value{Kind: Date, i: int64(julian)} }
func NewEDate(v uint32) Value      { return Value{Kind: EDate, i: int64(v)} }
func NewDDate(v int64) Value       { return Value{Kind: DDate, i: v} }
func NewTime(secs int32) Value     { return Value{Kind: Time, i: int64(secs)} }
func NewMoney(cents int32) Value   { return Value{Kind: Money, i: int64(cents)} }
func NewFloat(f float32) Value     { return Value{Kind: Float, f: float64(f)} }
func NewDouble(f float64) Value    { return Value{Kind: Double, f: f} }
func NewFuncHandle(id int32) Value { return Value{Kind: FuncHandle, i: int64(id)} }
func NewProcHandle(id int32) Value { return Value{Kind: ProcHandle, i: int64(id)} }
func NewUserData(typeID uint8, raw int64) Value {
	return Value{Kind: UserData, ud: typeID, i: raw}
}
func NewMessageAreaID(conf, area int32) Value {
	return Value{Kind: MessageAreaIDKind, area: MessageAreaID{Conference: conf, Area: area}}
}

// NewString builds a String (≤256 bytes) value; callers that know the script
// declared BIGSTR should use NewBigStr instead (spec.md §3.1 length caps).
func NewString(s string) Value {
	if len(s) > 256 {
		s = s[:256]
	}
	return Value{Kind: String, str: s}
}

func NewBigStr(s string) Value {
	if len(s) > 2048 {
		s = s[:2048]
	}
	return Value{Kind: BigStr, str: s}
}

func NewTable() Value {
	return Value{Kind: TableKind, tbl: make(map[string]Value)}
}

// NewArray builds a zero-valued array of the given element kind with the
// requested per-axis sizes (dim 1..3). Element storage per axis is size+1
// slots, per spec.md §3.1 ("storage size N+1").
func NewArray(elemKind Kind, sizes ...int) (Value, error) {
	dim := len(sizes)
	if dim < 1 || dim > 3 {
		return Value{}, fmt.Errorf("value: array dimension must be 1..3, got %d", dim)
	}
	total := 1
	var st [3]int
	for i, n := range sizes {
		if n < 0 {
			return Value{}, fmt.Errorf("value: negative array size %d", n)
		}
		st[i] = n + 1
		total *= st[i]
		if total > 100_000_000 {
			return Value{}, fmt.Errorf("value: array size exceeds 1e8 element cap")
		}
	}
	elems := make([]Value, total)
	zero := ZeroOf(elemKind)
	for i := range elems {
		elems[i] = zero
	}
	return Value{Kind: elemKind, Dim: uint8(dim), Elems: elems, Sizes: st}, nil
}

// ZeroOf returns the default ("uninitialized") Value for a scalar kind.
func ZeroOf(k Kind) Value {
	switch k {
	case String:
		return NewString("")
	case BigStr:
		return NewBigStr("")
	case Float:
		return NewFloat(0)
	case Double:
		return NewDouble(0)
	case TableKind:
		return NewTable()
	case MessageAreaIDKind:
		return NewMessageAreaID(0, 0)
	default:
		return Value{Kind: k}
	}
}

// ---------------------------------------------------------------------------
// Array access
// ---------------------------------------------------------------------------

// Area returns the conference:area pair of a MessageAreaIDKind value.
func (v Value) Area() MessageAreaID { return v.area }

// IsArray reports whether v is a composite (Dim>0) value.
func (v Value) IsArray() bool { return v.Dim > 0 }

// Index returns the element at the given per-axis indices, row-major
// flattened (decision recorded in SPEC_FULL.md: row-major, matching the
// FWRITE on-disk layout). Returns an error on out-of-range index, per
// spec.md §3.1 dimension invariants.
func (v Value) Index(idx ...int) (Value, error) {
	if int(v.Dim) != len(idx) {
		return Value{}, fmt.Errorf("value: expected %d indices, got %d", v.Dim, len(idx))
	}
	off, err := v.flatOffset(idx)
	if err != nil {
		return Value{}, err
	}
	return v.Elems[off], nil
}

// SetIndex writes elem at the given per-axis indices.
func (v *Value) SetIndex(elem Value, idx ...int) error {
	if int(v.Dim) != len(idx) {
		return fmt.Errorf("value: expected %d indices, got %d", v.Dim, len(idx))
	}
	off, err := v.flatOffset(idx)
	if err != nil {
		return err
	}
	v.Elems[off] = elem
	return nil
}

func (v Value) flatOffset(idx []int) (int, error) {
	off := 0
	for axis := 0; axis < len(idx); axis++ {
		n := idx[axis]
		size := v.Sizes[axis]
		if n < 0 || n >= size {
			return 0, fmt.Errorf("value: index %d out of range [0,%d) on axis %d", n, size, axis)
		}
		off = off*size + n
	}
	return off, nil
}

// Redim reallocates v's array storage to the new per-axis sizes, preserving
// elements that still fit (PPL's REDIM statement).
func (v Value) Redim(sizes ...int) (Value, error) {
	nv, err := NewArray(v.Kind, sizes...)
	if err != nil {
		return Value{}, err
	}
	if !v.IsArray() {
		return nv, nil
	}
	copyRedim(&nv, v)
	return nv, nil
}

func copyRedim(dst *Value, src Value) {
	switch src.Dim {
	case 1:
		n := min(dst.Sizes[0], src.Sizes[0])
		for i := 0; i < n; i++ {
			dst.Elems[i] = src.Elems[i]
		}
	case 2:
		n0 := min(dst.Sizes[0], src.Sizes[0])
		n1 := min(dst.Sizes[1], src.Sizes[1])
		for i := 0; i < n0; i++ {
			for j := 0; j < n1; j++ {
				dst.Elems[i*dst.Sizes[1]+j] = src.Elems[i*src.Sizes[1]+j]
			}
		}
	case 3:
		n0 := min(dst.Sizes[0], src.Sizes[0])
		n1 := min(dst.Sizes[1], src.Sizes[1])
		n2 := min(dst.Sizes[2], src.Sizes[2])
		for i := 0; i < n0; i++ {
			for j := 0; j < n1; j++ {
				for k := 0; k < n2; k++ {
					di := (i*dst.Sizes[1]+j)*dst.Sizes[2] + k
					si := (i*src.Sizes[1]+j)*src.Sizes[2] + k
					dst.Elems[di] = src.Elems[si]
				}
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ---------------------------------------------------------------------------
// Table access (spec.md §3.1 Table(map Value→Value))
// ---------------------------------------------------------------------------

// tableKey serializes a Value to a string usable as a Go map key; PPL table
// keys are always scalars (string or numeric) in practice.
func tableKey(k Value) string {
	return k.Kind.String() + ":" + k.ToPPLString()
}

func (v Value) TableGet(key Value) (Value, bool) {
	val, ok := v.tbl[tableKey(key)]
	return val, ok
}

func (v Value) TableSet(key, val Value) {
	v.tbl[tableKey(key)] = val
}

func (v Value) TableDelete(key Value) {
	delete(v.tbl, tableKey(key))
}

func (v Value) TableLen() int { return len(v.tbl) }

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// ToInt64 converts v to an integer per spec.md §3.1: strings scan leading
// decimal digits (optionally signed) and stop at the first non-digit; an
// empty or all-non-digit string converts to 0.
func (v Value) ToInt64() int64 {
	switch v.Kind {
	case Float, Double:
		return int64(v.f)
	case String, BigStr:
		return scanLeadingInt(v.str)
	case MessageAreaIDKind:
		return int64(v.area.Conference)
	case TableKind:
		return int64(len(v.tbl))
	default:
		return v.i
	}
}

func scanLeadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t")
	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	n, _ := strconv.ParseInt(s[start:i], 10, 64)
	if neg {
		n = -n
	}
	return n
}

func (v Value) ToFloat64() float64 {
	switch v.Kind {
	case Float, Double:
		return v.f
	case String, BigStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return float64(scanLeadingInt(v.str))
		}
		return f
	default:
		return float64(v.i)
	}
}

func (v Value) ToBool() bool {
	switch v.Kind {
	case String, BigStr:
		return v.str != "" && v.str != "0"
	case Float, Double:
		return v.f != 0
	default:
		return v.i != 0
	}
}

// ToPPLString renders v the way PPL's implicit string conversion does (used
// by PRINT/PRINTLN, string concatenation, and table keys).
func (v Value) ToPPLString() string {
	switch v.Kind {
	case String, BigStr:
		return v.str
	case Boolean:
		if v.i != 0 {
			return "1"
		}
		return "0"
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Money:
		return fmt.Sprintf("%d.%02d", v.i/100, abs64(v.i%100))
	case MessageAreaIDKind:
		return fmt.Sprintf("%d:%d", v.area.Conference, v.area.Area)
	case TableKind:
		return fmt.Sprintf("TABLE(%d)", len(v.tbl))
	default:
		return strconv.FormatInt(v.i, 10)
	}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// ---------------------------------------------------------------------------
// Arithmetic & comparison (spec.md §3.1 type promotion table)
// ---------------------------------------------------------------------------

// promote applies the binary-op type-promotion rule: BigStr wins when both
// operands are string-like; Double wins when either is float-like; anything
// else downgrades to Integer ahead of the actual op, except that `+` between
// two values of the identical kind keeps that kind (so DATE+DATE stays DATE,
// etc. — legacy PCBoard scripts rely on this for date arithmetic).
func promote(op string, a, b Value) Kind {
	if a.Kind.isStringLike() && b.Kind.isStringLike() {
		if a.Kind == BigStr || b.Kind == BigStr {
			return BigStr
		}
		return String
	}
	if a.Kind.isFloatLike() || b.Kind.isFloatLike() {
		return Double
	}
	if op == "+" && a.Kind == b.Kind {
		return a.Kind
	}
	return Integer
}

// Add implements `+`: string concatenation when either operand is
// string-like, numeric addition (wrapping) otherwise.
func Add(a, b Value) Value {
	k := promote("+", a, b)
	if a.Kind.isStringLike() || b.Kind.isStringLike() {
		if a.Kind == BigStr || b.Kind == BigStr {
			k = BigStr
		} else {
			k = String
		}
	}
	if k == String || k == BigStr {
		s := a.ToPPLString() + b.ToPPLString()
		if k == BigStr {
			return NewBigStr(s)
		}
		return NewString(s)
	}
	if k == Double {
		return NewDouble(a.ToFloat64() + b.ToFloat64())
	}
	return wrapInt(k, a.ToInt64()+b.ToInt64())
}

// Sub, Mul, Div, Mod implement `- * / %`. Per spec.md §3.1, string operands
// are parsed as integers for these (string concatenation is `+`-only).
func Sub(a, b Value) Value { return arith(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }
func Mul(a, b Value) Value { return arith(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

func Div(a, b Value) (Value, error) {
	k := arithKind(a, b)
	if k == Double {
		d := b.ToFloat64()
		if d == 0 {
			return Value{}, fmt.Errorf("value: division by zero")
		}
		return NewDouble(a.ToFloat64() / d), nil
	}
	d := b.ToInt64()
	if d == 0 {
		return Value{}, fmt.Errorf("value: division by zero")
	}
	return wrapInt(k, a.ToInt64()/d), nil
}

func Mod(a, b Value) (Value, error) {
	k := arithKind(a, b)
	d := b.ToInt64()
	if d == 0 {
		return Value{}, fmt.Errorf("value: division by zero")
	}
	if k == Double {
		return NewDouble(math.Mod(a.ToFloat64(), b.ToFloat64())), nil
	}
	return wrapInt(k, a.ToInt64()%d), nil
}

func Pow(a, b Value) Value {
	if arithKind(a, b) == Double {
		return NewDouble(math.Pow(a.ToFloat64(), b.ToFloat64()))
	}
	return wrapInt(Integer, int64(math.Pow(float64(a.ToInt64()), float64(b.ToInt64()))))
}

func arithKind(a, b Value) Kind {
	if a.Kind.isFloatLike() || b.Kind.isFloatLike() {
		return Double
	}
	if a.Kind == b.Kind {
		switch a.Kind {
		case Byte, Word, SByte, SWord, Unsigned:
			return a.Kind
		}
	}
	return Integer
}

func arith(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) Value {
	k := arithKind(a, b)
	if k == Double {
		return NewDouble(floatOp(a.ToFloat64(), b.ToFloat64()))
	}
	return wrapInt(k, intOp(a.ToInt64(), b.ToInt64()))
}

// wrapInt produces the result Value of kind k, wrapping per PCBoard integer
// semantics (spec.md §3.1 "wrapping_add/sub/mul/div/rem for all integer
// types").
func wrapInt(k Kind, n int64) Value {
	switch k {
	case Byte:
		return NewByte(uint8(n))
	case Word:
		return NewWord(uint16(n))
	case SByte:
		return NewSByte(int8(n))
	case SWord:
		return NewSWord(int16(n))
	case Unsigned:
		return NewUnsigned(uint64(n))
	case Money:
		return Value{Kind: Money, i: int64(int32(n))}
	case Boolean:
		return NewBoolean(n != 0)
	case Date, EDate:
		return Value{Kind: k, i: int64(uint32(n))}
	case Time:
		return NewTime(int32(n))
	case DDate:
		return NewDDate(n)
	default:
		return NewInteger(int32(n))
	}
}

// Neg implements unary `-`.
func Neg(a Value) Value {
	if a.Kind.isFloatLike() {
		return NewDouble(-a.ToFloat64())
	}
	return wrapInt(Integer, -a.ToInt64())
}

// Not implements logical `!`.
func Not(a Value) Value { return NewBoolean(!a.ToBool()) }

// BitNot implements bitwise `~`.
func BitNot(a Value) Value { return wrapInt(Integer, ^a.ToInt64()) }

// And, Or implement `&` `|` as PPL's logical operators (not bitwise — PPL
// overloads these tokens for boolean AND/OR in conditional expressions).
func And(a, b Value) Value { return NewBoolean(a.ToBool() && b.ToBool()) }
func Or(a, b Value) Value  { return NewBoolean(a.ToBool() || b.ToBool()) }

// Compare returns -1/0/1 the way `< > <= >= = <>` consume it. String-like
// operands compare lexically; everything else numerically (floats widen
// if either side is float-like).
func Compare(a, b Value) int {
	if a.Kind.isStringLike() && b.Kind.isStringLike() {
		return strings.Compare(a.str, b.str)
	}
	if a.Kind.isFloatLike() || b.Kind.isFloatLike() {
		x, y := a.ToFloat64(), b.ToFloat64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	x, y := a.ToInt64(), b.ToInt64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func Equal(a, b Value) bool { return Compare(a, b) == 0 }
