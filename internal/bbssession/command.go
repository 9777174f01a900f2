package bbssession

import "strings"

// CommandAction is the dispatch tag spec.md §4.6 describes: a Command
// either runs a compiled PPE, calls an internal Go function, or changes
// session-level state (join a conference, hang up).
type CommandAction int

const (
	ActionRunPPE CommandAction = iota
	ActionCallFunc
	ActionJoinConference
	ActionLogoff
)

// Command is one entry in a conference's or the board's global command
// list, or in the hardcoded legacy short-command table.
type Command struct {
	Keyword string
	Action  CommandAction
	PPEPath string               // ActionRunPPE
	Func    func(*Session) error // ActionCallFunc
	ConfID  int                  // ActionJoinConference
}

// legacyCommands is the hardcoded PCBoard single-letter fallback table
// spec.md §4.6 calls out by name, consulted only once a caller's input
// fails to match anything in the conference or global command lists.
func legacyCommands() []Command {
	return []Command{
		{Keyword: "A", Action: ActionCallFunc, Func: (*Session).cmdAbandon},
		{Keyword: "B", Action: ActionCallFunc, Func: (*Session).cmdBulletin},
		{Keyword: "C", Action: ActionCallFunc, Func: (*Session).cmdComment},
		{Keyword: "D", Action: ActionCallFunc, Func: (*Session).cmdDownload},
		{Keyword: "E", Action: ActionCallFunc, Func: (*Session).cmdEnter},
		{Keyword: "F", Action: ActionCallFunc, Func: (*Session).cmdFileList},
		{Keyword: "G", Action: ActionLogoff},
		{Keyword: "?", Action: ActionCallFunc, Func: (*Session).cmdHelp},
	}
}

// resolveCommand implements spec.md §4.6's lookup order: exact keyword
// match, then unambiguous prefix match, first searching the current
// conference's command list, then the board's global list, then finally
// the legacy short-command table.
func (s *Session) resolveCommand(word string) (Command, bool) {
	word = strings.ToUpper(strings.TrimSpace(word))
	if word == "" {
		return Command{}, false
	}

	lists := [][]Command{s.conferenceCommands, s.globalCommands}
	for _, list := range lists {
		if c, ok := matchExact(list, word); ok {
			return c, true
		}
	}
	for _, list := range lists {
		if c, ok := matchPrefix(list, word); ok {
			return c, true
		}
	}

	legacy := legacyCommands()
	if c, ok := matchExact(legacy, word); ok {
		return c, true
	}
	return matchPrefix(legacy, word)
}

func matchExact(list []Command, word string) (Command, bool) {
	for _, c := range list {
		if strings.EqualFold(c.Keyword, word) {
			return c, true
		}
	}
	return Command{}, false
}

// matchPrefix requires the match be unambiguous within list: two commands
// in the same list sharing a prefix means neither is selected, so "CH"
// picks neither "CHAT" nor "CHECK" when both sit in one list.
func matchPrefix(list []Command, word string) (Command, bool) {
	var found Command
	n := 0
	for _, c := range list {
		if strings.HasPrefix(strings.ToUpper(c.Keyword), word) {
			found = c
			n++
		}
	}
	if n == 1 {
		return found, true
	}
	return Command{}, false
}

// tokenize splits a caller's command-line input the way PCBoard's prompt
// does: whitespace-separated words, first word is the command, the rest
// its arguments.
func tokenize(line string) []string {
	return strings.Fields(line)
}
