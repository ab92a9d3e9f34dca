package apl

import (
	"fmt"
	"strings"
)

// MainList is the name of the entry-point action list (`actions=`).
const MainList = "default"

// ActionKind discriminates the entry types an action list may hold.
type ActionKind int

const (
	// ActionCast casts an ability when its condition holds.
	ActionCast ActionKind = iota
	// ActionCallList evaluates a named sub-list, falling through to the
	// next entry when the sub-list selects nothing.
	ActionCallList
	// ActionRunList transfers control to a named sub-list; entries after it
	// are not considered this instant.
	ActionRunList
	// ActionVariable assigns a named variable for later entries to read.
	ActionVariable
)

// Action is one parsed priority-list entry.
type Action struct {
	Kind          ActionKind
	Ability       string // ActionCast
	ListName      string // ActionCallList / ActionRunList
	VarName       string // ActionVariable
	Value         Expr   // ActionVariable
	Condition     Expr   // nil = unconditional
	ConditionText string // original `if=` text, recorded into trace events
	Line          int    // 1-based source line, for diagnostics
}

// RuleSet is a parsed APL document: named action lists plus the original
// source text (the trace cache key commits to the text, not the parse).
type RuleSet struct {
	Source string
	Lists  map[string][]Action
}

// Parse tokenizes and parses APL text into a RuleSet. Malformed input fails
// fast with an error naming the offending list, entry, and line; a broken
// rule set is never partially executed.
func Parse(text string) (*RuleSet, error) {
	rs := &RuleSet{
		Source: text,
		Lists:  make(map[string][]Action),
	}

	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		listName, entry, appending, err := splitDirective(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if !appending && len(rs.Lists[listName]) > 0 {
			return nil, fmt.Errorf("line %d: list %q redefined with '=' after entries exist (use '+=/')", lineNo+1, listName)
		}

		action, err := parseEntry(entry, lineNo+1)
		if err != nil {
			return nil, fmt.Errorf("list %q entry %d (line %d): %w", listName, len(rs.Lists[listName])+1, lineNo+1, err)
		}
		rs.Lists[listName] = append(rs.Lists[listName], action)
	}

	if len(rs.Lists[MainList]) == 0 {
		return nil, fmt.Errorf("no 'actions=' entries found")
	}
	for name, list := range rs.Lists {
		for i, a := range list {
			if a.Kind == ActionCallList || a.Kind == ActionRunList {
				if _, ok := rs.Lists[a.ListName]; !ok {
					return nil, fmt.Errorf("list %q entry %d (line %d): reference to undefined list %q", name, i+1, a.Line, a.ListName)
				}
			}
		}
	}
	return rs, nil
}

// splitDirective breaks "actions.cds+=/entry" into its list name, the entry
// text, and whether the directive appends.
func splitDirective(line string) (listName, entry string, appending bool, err error) {
	const prefix = "actions"
	if !strings.HasPrefix(line, prefix) {
		return "", "", false, fmt.Errorf("expected 'actions' directive, got %q", line)
	}
	rest := line[len(prefix):]

	listName = MainList
	if strings.HasPrefix(rest, ".") {
		end := strings.IndexAny(rest, "+=")
		if end <= 1 {
			return "", "", false, fmt.Errorf("malformed list name in %q", line)
		}
		listName = rest[1:end]
		rest = rest[end:]
	}

	switch {
	case strings.HasPrefix(rest, "+=/"):
		return listName, rest[3:], true, nil
	case strings.HasPrefix(rest, "="):
		return listName, strings.TrimPrefix(rest[1:], "/"), false, nil
	default:
		return "", "", false, fmt.Errorf("expected '=' or '+=/' in %q", line)
	}
}

// parseEntry parses one comma-separated entry: an ability or control word
// followed by key=value options.
func parseEntry(entry string, line int) (Action, error) {
	if entry == "" {
		return Action{}, fmt.Errorf("empty entry")
	}
	parts := strings.Split(entry, ",")
	head := parts[0]

	opts := make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		eq := strings.Index(part, "=")
		if eq <= 0 {
			return Action{}, fmt.Errorf("malformed option %q", part)
		}
		key, value := part[:eq], part[eq+1:]
		if _, dup := opts[key]; dup {
			return Action{}, fmt.Errorf("duplicate option %q", key)
		}
		opts[key] = value
	}

	action := Action{Line: line}
	var err error

	switch head {
	case "call_action_list", "run_action_list":
		action.Kind = ActionCallList
		if head == "run_action_list" {
			action.Kind = ActionRunList
		}
		action.ListName = opts["name"]
		delete(opts, "name")
		if action.ListName == "" {
			return Action{}, fmt.Errorf("%s requires name=", head)
		}
	case "variable":
		action.Kind = ActionVariable
		action.VarName = opts["name"]
		delete(opts, "name")
		if action.VarName == "" {
			return Action{}, fmt.Errorf("variable requires name=")
		}
		valueText, ok := opts["value"]
		delete(opts, "value")
		if !ok {
			return Action{}, fmt.Errorf("variable %q requires value=", action.VarName)
		}
		action.Value, err = parseExpression(valueText)
		if err != nil {
			return Action{}, fmt.Errorf("value expression: %w", err)
		}
	default:
		action.Kind = ActionCast
		action.Ability = head
		if !validAbilityName(head) {
			return Action{}, fmt.Errorf("invalid ability name %q", head)
		}
	}

	if condText, ok := opts["if"]; ok {
		delete(opts, "if")
		action.Condition, err = parseExpression(condText)
		if err != nil {
			return Action{}, fmt.Errorf("condition: %w", err)
		}
		action.ConditionText = condText
	}

	for key := range opts {
		return Action{}, fmt.Errorf("unsupported option %q", key)
	}
	return action, nil
}

func validAbilityName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return len(s) > 0
}

// parseExpression parses a conditional expression into a typed tree.
//
// Grammar (loosest-binding first):
//
//	or    := and ('|' and)*
//	and   := cmp ('&' cmp)*
//	cmp   := sum (('<'|'<='|'>'|'>='|'='|'!=') sum)?
//	sum   := term (('+'|'-') term)*
//	term  := unary (('*'|'%') unary)*
//	unary := ('!'|'-') unary | number | path | '(' or ')'
func parseExpression(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &exprParser{input: input, toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return e, nil
}

type exprParser struct {
	input string
	toks  []token
	pos   int
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%s at offset %d of %q", fmt.Sprintf(format, args...), p.peek().pos, p.input)
}

func (p *exprParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: tokOr, left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (Expr, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: tokAnd, left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseCmp() (Expr, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokLT, tokLE, tokGT, tokGE, tokEQ, tokNE:
		op := p.next().kind
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return binaryExpr{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *exprParser) parseSum() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPlus || p.peek().kind == tokMinus {
		op := p.next().kind
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokStar || p.peek().kind == tokSlash {
		op := p.next().kind
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (Expr, error) {
	switch p.peek().kind {
	case tokNot, tokMinus:
		op := p.next().kind
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: op, operand: operand}, nil
	case tokNumber:
		t := p.next()
		return numberLit{value: t.num}, nil
	case tokPath:
		t := p.next()
		return pathRef{path: t.text}, nil
	case tokLParen:
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errorf("expected ')'")
		}
		p.next()
		return e, nil
	default:
		return nil, p.errorf("expected value, got %q", p.peek().text)
	}
}
