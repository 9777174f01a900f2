package bbsuser

import "github.com/icyboard/icyboard/internal/ppl/value"

// globalSink is the subset of *vm.VM the session runtime binds a Record
// against — kept as a narrow interface here so bbsuser does not import the
// vm package (and vm does not need to know bbsuser exists).
type globalSink interface {
	SetGlobal(name string, v value.Value) bool
}

// BindGlobals writes rec's fields into the matching U_* slots the running
// script actually allocated (internal/ppl/semantic's userVariables table
// names each slot 1:1 with a Record field). The two date fields are not
// bound: U_EXPDATE and U_PWDEXP keep their zero value. SetGlobal is a no-op
// for any name the script never referenced, so binding unconditionally is
// cheap and correct regardless of which slots a given script touches.
func BindGlobals(sink globalSink, rec Record) {
	sink.SetGlobal("U_NAME", value.NewString(rec.Name))
	sink.SetGlobal("U_CITY", value.NewString(rec.City))
	sink.SetGlobal("U_PWD", value.NewString(rec.Password))
	sink.SetGlobal("U_ALIAS", value.NewString(rec.Alias))
	sink.SetGlobal("U_SEC", value.NewInteger(int32(rec.Sec)))
	sink.SetGlobal("U_PAGELEN", value.NewInteger(int32(rec.PageLen)))
	sink.SetGlobal("U_EXPSEC", value.NewInteger(int32(rec.ExpSec)))
	sink.SetGlobal("U_BDPHONE", value.NewString(rec.BdPhone))
	sink.SetGlobal("U_HVPHONE", value.NewString(rec.HvPhone))
	sink.SetGlobal("U_TRANS", value.NewString(rec.Trans))
	sink.SetGlobal("U_CMNT1", value.NewString(rec.Cmnt1))
	sink.SetGlobal("U_CMNT2", value.NewString(rec.Cmnt2))
	sink.SetGlobal("U_NOTES", value.NewString(rec.Notes))
	sink.SetGlobal("U_ADDR", value.NewString(rec.Addr))
	sink.SetGlobal("U_VER", value.NewString(rec.Ver))
	sink.SetGlobal("U_ACCOUNT", value.NewInteger(int32(rec.Account)))
	sink.SetGlobal("U_SHORTDESC", value.NewBoolean(rec.ShortDesc))
	sink.SetGlobal("U_GENDER", value.NewString(rec.Gender))
	sink.SetGlobal("U_BIRTHDATE", value.NewString(rec.Birthdate))
	sink.SetGlobal("U_EMAIL", value.NewString(rec.Email))
	sink.SetGlobal("U_WEB", value.NewString(rec.Web))
	sink.SetGlobal("U_SCROLL", value.NewBoolean(rec.Scroll))
	sink.SetGlobal("U_LONGHDR", value.NewBoolean(rec.LongHdr))
	sink.SetGlobal("U_DEF79", value.NewBoolean(rec.Def79))
	sink.SetGlobal("U_FSE", value.NewBoolean(rec.Fse))
	sink.SetGlobal("U_FSEP", value.NewBoolean(rec.Fsep))
	sink.SetGlobal("U_CLS", value.NewBoolean(rec.Cls))
}

// CollectGlobals reads U_NAME, U_CITY, U_SEC, U_PAGELEN, U_CMNT1, U_CMNT2
// and U_NOTES back out of src, used after a script runs to persist those
// fields (e.g. a script that sets U_SEC to adjust the caller's security
// level). Other U_* slots are not read back, and fields with no
// corresponding slot in the running script are left unchanged in rec.
func CollectGlobals(src interface {
	Global(name string) (value.Value, bool)
}, rec *Record) {
	if v, ok := src.Global("U_NAME"); ok {
		rec.Name = v.ToPPLString()
	}
	if v, ok := src.Global("U_CITY"); ok {
		rec.City = v.ToPPLString()
	}
	if v, ok := src.Global("U_SEC"); ok {
		rec.Sec = int(v.ToInt64())
	}
	if v, ok := src.Global("U_PAGELEN"); ok {
		rec.PageLen = int(v.ToInt64())
	}
	if v, ok := src.Global("U_CMNT1"); ok {
		rec.Cmnt1 = v.ToPPLString()
	}
	if v, ok := src.Global("U_CMNT2"); ok {
		rec.Cmnt2 = v.ToPPLString()
	}
	if v, ok := src.Global("U_NOTES"); ok {
		rec.Notes = v.ToPPLString()
	}
}
