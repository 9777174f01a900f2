package vm

import (
	"strconv"
	"strings"
)

// MacroSource resolves board/session-scoped @IDENTIFIER@ macros (@BOARDNAME@,
// @TIMELEFT@, …) that have no representation as a U_* global. It is an
// optional, narrow collaborator supplied by the session runtime; a nil
// MacroSource just leaves unrecognized macros as literal text.
type MacroSource interface {
	// Macro returns the replacement text for name (without the @@ delimiters)
	// and whether name is recognized at all.
	Macro(name string) (string, bool)
}

// SetMacroSource installs the session runtime's board/session macro
// resolver. Optional: control macros (@CLS@, @MORE@, …) and U_* globals
// resolve without one.
func (vm *VM) SetMacroSource(src MacroSource) { vm.macros = src }

// expandAndPrint implements spec.md §4.5.7/§4.5.8: every PRINT/PRINTLN/
// DISPSTR scans its text once for "@Xhh" color codes and "@IDENTIFIER@"
// macros, then streams the result through the §4.5.8 line-counter/more-
// prompt machinery one line at a time. Expansion is single-pass — text
// substituted in for a macro is never itself rescanned.
func (vm *VM) expandAndPrint(text string, newline bool) error {
	var out strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '@' && i+2 < len(text) && text[i+1] == 'X' && isHex(text[i+2]) && i+3 < len(text) && isHex(text[i+3]) {
			attr, _ := strconv.ParseInt(text[i+2:i+4], 16, 32)
			if err := vm.flushPrint(&out); err != nil {
				return err
			}
			if err := vm.host.SetColor(int(attr)); err != nil {
				return err
			}
			i += 4
			continue
		}
		if c == '@' {
			if end := strings.IndexByte(text[i+1:], '@'); end >= 0 && end <= 32 {
				name := strings.ToUpper(text[i+1 : i+1+end])
				if handled, err := vm.runMacro(&out, name); err != nil {
					return err
				} else if handled {
					i += end + 2
					continue
				}
			}
		}
		out.WriteByte(c)
		i++
	}
	if err := vm.flushPrint(&out); err != nil {
		return err
	}
	if newline {
		return vm.printNewline()
	}
	return nil
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'F') || (b >= 'a' && b <= 'f')
}

// flushPrint writes and clears the pending literal-text buffer, routing
// through the abort-printout flag (spec.md §4.5.8: "N" makes further PRINTs
// a no-op until the next command boundary).
func (vm *VM) flushPrint(out *strings.Builder) error {
	if out.Len() == 0 {
		return nil
	}
	s := out.String()
	out.Reset()
	if vm.abortPrint {
		return nil
	}
	return vm.host.Print(s)
}

// printNewline emits one newline and runs the page-length/more-prompt check.
func (vm *VM) printNewline() error {
	if vm.abortPrint {
		return nil
	}
	if err := vm.host.Newline(); err != nil {
		return err
	}
	vm.lineCount++
	if vm.pageLen > 0 && !vm.nonStop && vm.lineCount > vm.pageLen {
		return vm.showMorePrompt()
	}
	return nil
}

// showMorePrompt implements the "More? (Y/N/NS)" prompt: Y continues, N sets
// abortPrint (silencing further output until ResetMoreState), NS sets
// nonStop (no further prompts this session).
func (vm *VM) showMorePrompt() error {
	vm.lineCount = 0
	if vm.autoMore {
		return nil
	}
	if err := vm.host.Print("More? (Y/N/NS)"); err != nil {
		return err
	}
	line, err := vm.readLine()
	if err != nil {
		return err
	}
	switch strings.ToUpper(strings.TrimSpace(line)) {
	case "N":
		vm.abortPrint = true
	case "NS":
		vm.nonStop = true
	}
	return vm.host.Newline()
}

// runMacro executes or substitutes one @IDENTIFIER@ macro. ok is false when
// name is not recognized at all, in which case the caller re-emits the
// literal "@NAME@" text unchanged.
func (vm *VM) runMacro(out *strings.Builder, name string) (bool, error) {
	switch {
	case name == "CLS":
		if err := vm.flushPrint(out); err != nil {
			return true, err
		}
		return true, vm.host.Cls()
	case name == "BEEP":
		vm.host.Bell()
		return true, nil
	case name == "WAIT":
		if err := vm.flushPrint(out); err != nil {
			return true, err
		}
		_, err := vm.readKey()
		return true, err
	case name == "MORE":
		if err := vm.flushPrint(out); err != nil {
			return true, err
		}
		return true, vm.showMorePrompt()
	case name == "AUTOMORE":
		vm.autoMore = true
		return true, nil
	case name == "POFF":
		vm.pageLen = 0
		return true, nil
	case name == "PON":
		vm.pageLen = 23
		return true, nil
	case strings.HasPrefix(name, "POS:"):
		n, err := strconv.Atoi(name[len("POS:"):])
		if err != nil {
			return true, nil
		}
		if err := vm.flushPrint(out); err != nil {
			return true, err
		}
		return true, vm.host.MoveCursor(n - vm.host.Column())
	case strings.HasPrefix(name, "ENV:"):
		return true, nil // no environment-variable map is modeled
	}
	if id, err := vm.lookupSlotID(name); err == nil {
		out.WriteString(vm.getSlot(nil, id).ToPPLString())
		return true, nil
	}
	if vm.macros != nil {
		if v, ok := vm.macros.Macro(name); ok {
			out.WriteString(v)
			return true, nil
		}
	}
	return false, nil
}
