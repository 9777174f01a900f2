// Package bbssession implements spec.md §4.6's session runtime: the
// per-node login handshake, the tokenize/resolve/dispatch command loop,
// and the glue wiring internal/bbsuser, internal/bbsconfig,
// internal/bbsterm, internal/bbsnode, and internal/ppl/vm together into one
// running call.
package bbssession

import (
	"fmt"
	"strings"
	"time"

	"github.com/icyboard/icyboard/internal/bbsconfig"
	"github.com/icyboard/icyboard/internal/bbscrypt"
	"github.com/icyboard/icyboard/internal/bbsnode"
	"github.com/icyboard/icyboard/internal/bbsterm"
	"github.com/icyboard/icyboard/internal/bbsuser"
	"github.com/icyboard/icyboard/internal/icylog"
	"github.com/icyboard/icyboard/internal/ppl/vm"
)

// Session is one caller's state for the lifetime of a call: the node slot
// it occupies, its terminal, its user record, and the command lists it
// resolves input against. Created on connection accept, discarded on
// hangup (spec.md §3.5).
type Session struct {
	Node  *bbsnode.NodeState
	Table *bbsnode.NodeTable
	Board bbsconfig.Board
	Users *bbsuser.Store
	Term  *bbsterm.Terminal
	Load  *Loader
	Log   *icylog.Logger

	Rec   bbsuser.Record
	Env   map[string]string
	Conf  int
	Alias string

	loggedIn bool

	conferenceCommands []Command
	globalCommands     []Command
	tokens             []string
}

// New builds a Session bound to node idx of table. The caller is
// responsible for calling Run once the connection is ready for the login
// banner.
func New(table *bbsnode.NodeTable, idx int, board bbsconfig.Board, users *bbsuser.Store, loader *Loader, term *bbsterm.Terminal, log *icylog.Logger) (*Session, error) {
	node, err := table.Join(idx, term.Mode)
	if err != nil {
		return nil, err
	}
	return &Session{
		Node:           node,
		Table:          table,
		Board:          board,
		Users:          users,
		Term:           term,
		Load:           loader,
		Log:            log,
		Env:            map[string]string{},
		globalCommands: defaultGlobalCommands(),
	}, nil
}

// defaultGlobalCommands ships a minimal board-wide command list; a real
// installation loads this from conference configuration, but the legacy
// table in command.go already covers the PCBoard single-letter fallback
// spec.md §4.6 requires regardless.
func defaultGlobalCommands() []Command {
	return []Command{
		{Keyword: "WHO", Action: ActionCallFunc, Func: (*Session).cmdWho},
		{Keyword: "BYE", Action: ActionLogoff},
	}
}

// Run drives the session to completion: login, JOIN main, then the
// tokenize/resolve/dispatch loop, until a command sets ActionLogoff or the
// connection errors out.
func (s *Session) Run() error {
	defer s.Table.Leave(s.Node.Index)

	if err := s.login(); err != nil {
		return err
	}

	s.Conf = 0
	s.Table.Login(s.Node.Index, s.Rec.Alias)
	s.Table.SetStatus(s.Node.Index, bbsnode.Active)
	s.Term.Print("Joined main conference.\r\n")

	for {
		select {
		case msg := <-s.Node.Inbox():
			s.deliver(msg)
		default:
		}

		s.Term.Print("\r\nCommand? ")
		line, err := s.Term.ReadLine(true)
		if err != nil {
			return err
		}

		s.tokens = tokenize(line)
		if len(s.tokens) == 0 {
			continue
		}

		cmd, ok := s.resolveCommand(s.tokens[0])
		if !ok {
			s.Term.Print("Unknown command.\r\n")
			continue
		}

		halt, err := s.dispatch(cmd)
		if err != nil {
			s.Log.Error("command failed", "cmd", s.tokens[0], "err", err)
		}
		if halt {
			return nil
		}
	}
}

// dispatch executes one resolved Command and reports whether the session
// loop should stop (ActionLogoff).
func (s *Session) dispatch(cmd Command) (halt bool, err error) {
	switch cmd.Action {
	case ActionRunPPE:
		return false, s.RunPPE(cmd.PPEPath)
	case ActionCallFunc:
		return false, cmd.Func(s)
	case ActionJoinConference:
		s.Conf = cmd.ConfID
		return false, s.Term.Print(fmt.Sprintf("Joined conference %d.\r\n", s.Conf))
	case ActionLogoff:
		return true, s.cmdGoodbye()
	default:
		return false, fmt.Errorf("bbssession: unknown CommandAction %d", cmd.Action)
	}
}

// deliver applies a cross-node message (spec.md §4.6). Run calls it for at
// most one pending inbox message before each command prompt, without
// blocking when the inbox is empty.
func (s *Session) deliver(msg bbsnode.Message) {
	switch msg.Kind {
	case bbsnode.Broadcast:
		s.Term.Print("\r\n*** " + msg.Text + " ***\r\n")
	case bbsnode.SysopLogin:
		s.Term.Print("\r\n*** Sysop has logged in ***\r\n")
	case bbsnode.SysopLogout:
		s.Term.Print("\r\n*** Sysop has logged off ***\r\n")
	}
}

// login prompts for alias/password, verifies against the user store, and
// binds the session's Rec. A record not found prompts for new-user
// signup details instead of failing outright, matching PCBoard's
// first-time-caller flow.
func (s *Session) login() error {
	s.Table.SetStatus(s.Node.Index, bbsnode.LoggingIn)
	s.Term.Print("Enter your alias: ")
	alias, err := s.Term.ReadLine(true)
	if err != nil {
		return err
	}
	alias = strings.TrimSpace(alias)

	rec, err := s.Users.GetUser(alias)
	switch {
	case err == bbsuser.ErrNotFound:
		return s.signup(alias)
	case err != nil:
		return err
	}

	s.Term.Print("Password: ")
	pw, err := s.Term.ReadLine(false)
	if err != nil {
		return err
	}
	if err := bbscrypt.VerifyPassword(rec.Password, pw); err != nil {
		s.Term.Print("\r\nInvalid password.\r\n")
		return s.login()
	}

	rec.LastOn = time.Now()
	rec.TimesOn++
	if err := s.Users.PutUser(rec); err != nil {
		return err
	}
	s.Rec = rec
	s.Alias = rec.Alias
	s.loggedIn = true
	return nil
}

// signup registers a brand-new alias with a fixed security level of 10,
// asking for a password the same way login does.
func (s *Session) signup(alias string) error {
	s.Term.Print("\r\nNew user. Choose a password: ")
	pw, err := s.Term.ReadLine(false)
	if err != nil {
		return err
	}
	hash, err := bbscrypt.HashPassword(pw)
	if err != nil {
		return err
	}
	rec := bbsuser.Record{
		Alias:    alias,
		Sec:      10,
		PageLen:  s.Board.PageLength,
		Password: hash,
		LastOn:   time.Now(),
		TimesOn:  1,
	}
	if err := s.Users.PutUser(rec); err != nil {
		return err
	}
	s.Rec = rec
	s.Alias = alias
	s.loggedIn = true
	return nil
}

// RunPPE loads (from Load's cache) and executes the compiled program at
// path over this session's terminal, binding U_* globals before the run
// and afterward persisting the slots bbsuser.CollectGlobals reads back.
func (s *Session) RunPPE(path string) error {
	compiled, err := s.Load.Load(path)
	if err != nil {
		return err
	}

	machine := vm.New(compiled.version, compiled.table, compiled.conts, compiled.refs, compiled.main, s.Term)
	machine.SetMacroSource(s)
	pageLen := s.Rec.PageLen
	if pageLen <= 0 {
		pageLen = s.Board.PageLength
	}
	machine.SetPageLen(pageLen)

	bbsuser.BindGlobals(machine, s.Rec)
	if err := machine.Run(); err != nil {
		return err
	}
	bbsuser.CollectGlobals(machine, &s.Rec)
	return s.Users.PutUser(s.Rec)
}

// --- vm.MacroSource ------------------------------------------------------

// Macro resolves board/session-scoped @IDENTIFIER@ macros that have no U_*
// vartable slot (spec.md §4.5.7).
func (s *Session) Macro(name string) (string, bool) {
	switch name {
	case "BOARDNAME":
		return s.Board.Name, true
	case "SYSOPNAME":
		return s.Board.SysopName, true
	case "NODE":
		return fmt.Sprintf("%d", s.Node.Index+1), true
	case "TIMELEFT":
		return fmt.Sprintf("%d", s.Board.MaxCallTime), true
	default:
		if v, ok := s.Env[name]; ok {
			return v, true
		}
		return "", false
	}
}
