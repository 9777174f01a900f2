package bbsuser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icyboard/icyboard/internal/ppl/value"
)

// fakeSink is a minimal globalSink/Global source recording every write it
// receives, used to verify BindGlobals/CollectGlobals without a real VM.
type fakeSink struct {
	slots map[string]value.Value
}

func newFakeSink() *fakeSink { return &fakeSink{slots: make(map[string]value.Value)} }

func (f *fakeSink) SetGlobal(name string, v value.Value) bool {
	f.slots[name] = v
	return true
}

func (f *fakeSink) Global(name string) (value.Value, bool) {
	v, ok := f.slots[name]
	return v, ok
}

func TestBindGlobalsWritesEveryField(t *testing.T) {
	sink := newFakeSink()
	BindGlobals(sink, Record{Name: "Alice", City: "Metropolis", Sec: 30})

	name, ok := sink.Global("U_NAME")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name.ToPPLString())

	sec, ok := sink.Global("U_SEC")
	assert.True(t, ok)
	assert.Equal(t, int64(30), sec.ToInt64())
}

func TestCollectGlobalsRoundTrips(t *testing.T) {
	sink := newFakeSink()
	BindGlobals(sink, Record{Name: "Alice", Sec: 30})
	sink.SetGlobal("U_SEC", value.NewInteger(45)) // script raised the caller's security level

	rec := Record{Name: "Alice", Sec: 30}
	CollectGlobals(sink, &rec)
	assert.Equal(t, 45, rec.Sec)
}
