// Package parser turns source text into a syntax.Commands tree. It is
// the "external collaborator, not specified in depth" spec.md §1 names;
// this implementation follows the grammar of
// _examples/original_source/src/grammar.rs closely, extended with the
// shebang-stripping and backslash/semicolon continuation features
// SPEC_FULL.md §4 adds on top of it.
package parser

import (
	"strings"

	"github.com/alush-lang/alush"
	"github.com/alush-lang/alush/syntax"
)

// ErrIncomplete is returned (wrapped) when the input ends in the middle
// of a construct that expects more — an unclosed quote, an unclosed
// `(`/`$(`, or a command continuation awaiting its terminating `;`. A
// REPL uses this to tell "keep reading more lines" apart from a real
// syntax error.
var ErrIncomplete = alush.WithStack(&parseError{msg: "incomplete input"})

type parseError struct {
	msg string
}

func (e *parseError) Error() string { return e.msg }

func incomplete() error { return ErrIncomplete }

func syntaxErr(msg string) error { return alush.WithStack(&parseError{msg: msg}) }

// StripShebang removes a leading `#!...` line, if present, and returns
// the remainder plus the shebang line's text (without `#!` or the
// trailing newline). hadShebang reports whether one was found.
func StripShebang(src string) (rest string, shebangLine string, hadShebang bool) {
	if !strings.HasPrefix(src, "#!") {
		return src, "", false
	}
	if idx := strings.IndexByte(src, '\n'); idx >= 0 {
		return src[idx+1:], src[2:idx], true
	}
	return "", src[2:], true
}

type scanner struct {
	runes []rune
	pos   int
}

func newScanner(s string) *scanner {
	return &scanner{runes: []rune(s)}
}

func (s *scanner) peek() (rune, bool) {
	if s.pos >= len(s.runes) {
		return 0, false
	}
	return s.runes[s.pos], true
}

func (s *scanner) peekAt(offset int) (rune, bool) {
	idx := s.pos + offset
	if idx >= len(s.runes) {
		return 0, false
	}
	return s.runes[idx], true
}

func (s *scanner) next() (rune, bool) {
	r, ok := s.peek()
	if ok {
		s.pos++
	}
	return r, ok
}

func (s *scanner) accept(r rune) bool {
	if v, ok := s.peek(); ok && v == r {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) expect(r rune) error {
	if s.accept(r) {
		return nil
	}
	if _, ok := s.peek(); !ok {
		return incomplete()
	}
	return syntaxErr("expected " + string(r))
}

func (s *scanner) skipSpacesAndTabs() {
	for {
		r, ok := s.peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		s.pos++
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.runes)
}

// Parse parses an entire script: a sequence of commands separated by
// newlines, blank lines and `#`-comments permitted, running to EOF
// (spec.md §6's "read file, parse into a sequence of commands").
func Parse(src string) (*syntax.Commands, error) {
	s := newScanner(src)
	cmds, err := parseCommandSequence(s, false)
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// ParseCommand parses exactly one command from src (a REPL line, or
// several lines already joined by the caller while awaiting closing
// parens). Leading blank/comment lines are skipped first, mirroring
// original_source/src/grammar.rs's `shell` parser.
func ParseCommand(src string) (*syntax.Command, error) {
	s := newScanner(src)
	for {
		s.skipSpacesAndTabs()
		if r, ok := s.peek(); ok && r == '#' {
			skipToNewline(s)
			if err := s.expect('\n'); err != nil {
				return nil, err
			}
			continue
		}
		if s.accept('\n') {
			continue
		}
		break
	}
	if s.atEnd() {
		return nil, incomplete()
	}
	cmd, err := command(s)
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func skipToNewline(s *scanner) {
	for {
		r, ok := s.peek()
		if !ok || r == '\n' {
			return
		}
		s.pos++
	}
}

// parseCommandSequence parses commands until EOF (insideParen == false)
// or until a closing `)` (insideParen == true), skipping blank lines
// and `#` comments between commands.
func parseCommandSequence(s *scanner, insideParen bool) (*syntax.Commands, error) {
	cmds := &syntax.Commands{}
	for {
		s.skipSpacesAndTabs()
		if insideParen && s.accept(')') {
			return cmds, nil
		}
		if !insideParen && s.atEnd() {
			return cmds, nil
		}
		if s.accept('#') {
			skipToNewline(s)
			if s.atEnd() {
				if insideParen {
					return nil, incomplete()
				}
				return cmds, nil
			}
			if err := s.expect('\n'); err != nil {
				return nil, err
			}
			continue
		}
		if s.accept('\n') {
			continue
		}
		cmd, err := command(s)
		if err != nil {
			return nil, err
		}
		cmds.List = append(cmds.List, cmd)
		if s.atEnd() {
			if insideParen {
				return nil, incomplete()
			}
			return cmds, nil
		}
		if err := s.expect('\n'); err != nil {
			return nil, err
		}
	}
}

// command parses a single whitespace-separated Command, honoring the
// backslash-newline continuation and the `;` terminator token
// (SPEC_FULL.md §4). Each `\` continues the command onto the next line
// only; a continued line without its own trailing `\` ends the command
// at its newline even if no `;` has been seen.
func command(s *scanner) (syntax.Command, error) {
	cmd := syntax.Command{}

	e, err := expr(s)
	if err != nil {
		return syntax.Command{}, err
	}
	cmd.Exprs = append(cmd.Exprs, e)

	for {
		if !skipSeparators(s) {
			break
		}
		e, err := expr(s)
		if err != nil {
			return syntax.Command{}, err
		}
		if e.Kind == syntax.KindString && e.String == ";" {
			break
		}
		cmd.Exprs = append(cmd.Exprs, e)
	}

	return cmd, nil
}

// skipSeparators consumes any run of plain spaces and backslash-newline
// continuations between two expressions, reporting whether it consumed
// anything at all.
func skipSeparators(s *scanner) bool {
	consumed := false
	for s.accept(' ') || acceptContinuation(s) {
		consumed = true
	}
	return consumed
}

// acceptContinuation consumes a trailing `\` followed by a newline (and
// any leading indentation on the following line), reporting whether it
// found one.
func acceptContinuation(s *scanner) bool {
	if r, ok := s.peek(); !ok || r != '\\' {
		return false
	}
	if r, ok := s.peekAt(1); !ok || r != '\n' {
		return false
	}
	s.pos += 2
	s.skipSpacesAndTabs()
	return true
}

func expr(s *scanner) (syntax.Expr, error) {
	dollar := s.accept('$')
	if s.accept('(') {
		cmds, err := parseCommandSequenceOrInline(s)
		if err != nil {
			return syntax.Expr{}, err
		}
		if dollar {
			return syntax.Block(cmds), nil
		}
		return syntax.Closure(cmds), nil
	}
	str, err := stringLiteral(s)
	if err != nil {
		return syntax.Expr{}, err
	}
	if dollar {
		return syntax.Dollar(str), nil
	}
	return syntax.Str(str), nil
}

// parseCommandSequenceOrInline implements grammar.rs's `commands`: a
// `(` immediately followed by `\n` opens a multi-line body (one command
// per line until `)`); otherwise it's a single inline command that must
// not itself span lines.
func parseCommandSequenceOrInline(s *scanner) (*syntax.Commands, error) {
	if s.accept('\n') {
		return parseCommandSequence(s, true)
	}
	if s.accept(')') {
		return &syntax.Commands{}, nil
	}
	cmd, err := command(s)
	if err != nil {
		return nil, err
	}
	if !s.accept(')') {
		if r, ok := s.peek(); !ok || r == '\n' {
			return nil, incomplete()
		}
		return nil, syntaxErr("expected )")
	}
	return &syntax.Commands{List: []syntax.Command{cmd}}, nil
}

func stringLiteral(s *scanner) (string, error) {
	if s.accept('\'') {
		return quotedString(s)
	}
	var b strings.Builder
	for {
		r, ok := s.peek()
		if !ok || r == ' ' || r == '\n' || r == ')' || r == '\t' {
			if b.Len() == 0 {
				if !ok {
					return "", incomplete()
				}
				return "", syntaxErr("expected a value, found " + string(r))
			}
			return b.String(), nil
		}
		s.pos++
		b.WriteRune(r)
	}
}

func quotedString(s *scanner) (string, error) {
	var b strings.Builder
	for {
		if s.accept('\'') {
			if s.accept('\'') {
				b.WriteByte('\'')
				continue
			}
			return b.String(), nil
		}
		r, ok := s.next()
		if !ok {
			return "", incomplete()
		}
		b.WriteRune(r)
	}
}
