package clnet

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// MaxCommandText is the size of the command buffer.
const MaxCommandText = 8192

// Args is a tokenized command line.
type Args struct {
	argv []string
	args string
}

// Argc returns the number of tokens.
func (a Args) Argc() int { return len(a.argv) }

// Argv returns token i, or "" if there is none.
func (a Args) Argv(i int) string {
	if i < 0 || i >= len(a.argv) {
		return ""
	}

	return a.argv[i]
}

// Args returns the raw text after the command name,
// with surrounding whitespace removed.
func (a Args) Args() string { return a.args }

// Tokenize splits the first line of text into tokens. Tokens are
// separated by whitespace, a quoted string is one token and
// "//" starts a comment.
func Tokenize(text string) Args {
	var a Args

	for {
		for len(text) > 0 && text[0] <= ' ' && text[0] != '\n' {
			text = text[1:]
		}

		if len(text) == 0 || text[0] == '\n' {
			return a
		}

		if len(a.argv) == 1 {
			a.args = strings.TrimRightFunc(firstLine(text), func(r rune) bool { return r <= ' ' })
		}

		tok, rest, ok := parseToken(text)
		if !ok {
			return a
		}

		a.argv = append(a.argv, tok)
		text = rest
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}

// parseToken reads one token from text, which starts with
// a non-space character.
func parseToken(text string) (tok, rest string, ok bool) {
	if strings.HasPrefix(text, "//") {
		return "", "", false
	}

	if text[0] == '"' {
		end := strings.IndexByte(text[1:], '"')
		if end < 0 {
			return text[1:], "", true
		}

		return text[1 : end+1], text[end+2:], true
	}

	i := 0
	for i < len(text) && text[i] > ' ' {
		i++
	}

	return text[:i], text[i:], true
}

// A Console runs command lines against a set of registered commands.
type Console struct {
	out      io.Writer
	cmds     map[string]consoleCmd
	fallback func(Args)
	text     strings.Builder
}

type consoleCmd struct {
	help string
	fn   func(Args)
}

// NewConsole returns an empty Console printing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:  out,
		cmds: make(map[string]consoleCmd),
	}
}

// Register adds a command. Command names are case insensitive.
// Registering a name twice replaces the command.
func (con *Console) Register(name, help string, fn func(Args)) {
	con.cmds[strings.ToLower(name)] = consoleCmd{help: help, fn: fn}
}

// SetFallback sets the function that runs lines naming
// an unknown command.
func (con *Console) SetFallback(fn func(Args)) {
	con.fallback = fn
}

// Commands returns the names of the registered commands in order.
func (con *Console) Commands() []string {
	names := make([]string, 0, len(con.cmds))
	for name := range con.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Help returns the help text of a command.
func (con *Console) Help(name string) string {
	return con.cmds[strings.ToLower(name)].help
}

// AddText appends text to the command buffer. Text that does
// not fit is discarded.
func (con *Console) AddText(text string) {
	if con.text.Len()+len(text) > MaxCommandText {
		fmt.Fprintf(con.out, "AddText: overflow\n")
		return
	}

	con.text.WriteString(text)
}

// Pending returns the unexecuted text of the command buffer.
func (con *Console) Pending() string { return con.text.String() }

// Execute runs the command buffer. Commands are separated by
// newlines and by semicolons outside quotes. Commands may add
// text, which runs in the same call.
func (con *Console) Execute() {
	for con.text.Len() > 0 {
		text := con.text.String()

		quotes := false
		i := 0
		for ; i < len(text); i++ {
			if text[i] == '"' {
				quotes = !quotes
			}
			if (text[i] == ';' && !quotes) || text[i] == '\n' {
				break
			}
		}

		line := text[:i]
		if i < len(text) {
			i++
		}

		con.text.Reset()
		con.text.WriteString(text[i:])

		con.ExecuteString(line)
	}
}

// ExecuteString runs a single command line.
func (con *Console) ExecuteString(line string) {
	args := Tokenize(line)
	if args.Argc() == 0 {
		return
	}

	if cmd, ok := con.cmds[strings.ToLower(args.Argv(0))]; ok {
		cmd.fn(args)
		return
	}

	if con.fallback != nil {
		con.fallback(args)
		return
	}

	fmt.Fprintf(con.out, "Unknown command \"%s\"\n", args.Argv(0))
}
