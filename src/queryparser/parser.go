package queryparser

import (
	"fmt"
	"strings"

	"github.com/dstrohschein/miniql/src/queryast"
)

type parser struct {
	toks []string
	pos  int
}

// Parse turns query text into a queryast.Statement. A trailing
// semicolon, if present, is stripped before tokenizing.
func Parse(text string) (queryast.Statement, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")

	p := &parser{toks: tokenize(text)}
	if p.atEnd() {
		return nil, fmt.Errorf("empty query")
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected tokens after statement: %v", p.toks[p.pos:])
	}
	return stmt, nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) peekUpper() string { return upper(p.peek()) }

func (p *parser) advance() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *parser) expectUpper(word string) error {
	if p.peekUpper() != word {
		return fmt.Errorf("expected %q, found %q", word, p.peek())
	}
	p.advance()
	return nil
}

func (p *parser) expect(tok string) error {
	if p.peek() != tok {
		return fmt.Errorf("expected %q, found %q", tok, p.peek())
	}
	p.advance()
	return nil
}

func (p *parser) parseStatement() (queryast.Statement, error) {
	switch p.peekUpper() {
	case "CREATE":
		return p.parseCreateTable()
	case "DROP":
		return p.parseDropTable()
	case "INSERT":
		return p.parseInsert()
	case "DELETE":
		return p.parseDelete()
	case "SELECT", "(":
		return p.parseQueryOrSetOp()
	default:
		return nil, fmt.Errorf("unrecognized statement starting at %q", p.peek())
	}
}

var setOps = map[string]queryast.SetOp{
	"UNION":     queryast.Union,
	"INTERSECT": queryast.Intersect,
	"EXCEPT":    queryast.Except,
	"TIMES":     queryast.Times,
	"ALL":       queryast.All,
	"MINUS":     queryast.Minus,
}

// parseQueryOrSetOp parses one SELECT (or parenthesized SELECT), then
// folds in any chain of trailing set operators left-associatively:
// `a UNION b EXCEPT c` parses as `(a UNION b) EXCEPT c`.
func (p *parser) parseQueryOrSetOp() (queryast.Statement, error) {
	left, err := p.parseSingleOrParenQuery()
	if err != nil {
		return nil, err
	}

	var result queryast.Statement = left
	for {
		op, ok := setOps[p.peekUpper()]
		if !ok {
			break
		}
		p.advance()
		right, err := p.parseSingleOrParenQuery()
		if err != nil {
			return nil, err
		}
		result = &queryast.SetOperation{Op: op, Left: result, Right: right}
	}
	return result, nil
}

func (p *parser) parseSingleOrParenQuery() (queryast.Statement, error) {
	if p.peek() == "(" {
		p.advance()
		stmt, err := p.parseQueryOrSetOp()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return stmt, nil
	}
	return p.parseSingleQuery()
}

func (p *parser) parseSingleQuery() (*queryast.SingleQuery, error) {
	if err := p.expectUpper("SELECT"); err != nil {
		return nil, err
	}
	columns, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	if err := p.expectUpper("FROM"); err != nil {
		return nil, err
	}
	source, err := p.parseSource()
	if err != nil {
		return nil, err
	}

	var where []queryast.Condition
	if p.peekUpper() == "WHERE" {
		p.advance()
		where, err = p.parseWhere()
		if err != nil {
			return nil, err
		}
	}

	return &queryast.SingleQuery{Columns: columns, Source: source, Where: where}, nil
}

func (p *parser) parseSelectList() ([]queryast.SelectItem, error) {
	if p.peek() == "*" {
		p.advance()
		return []queryast.SelectItem{{Star: true}}, nil
	}
	var items []queryast.SelectItem
	for {
		item, err := p.parseFieldRefToken()
		if err != nil {
			return nil, err
		}
		items = append(items, queryast.SelectItem{Table: item.Table, Field: item.Field})
		if p.peek() == "," {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

// parseFieldRefToken reads a `table.field` or bare `field` token and
// splits it into a FieldRef without consulting any schema — resolution
// against the actual source happens in the planner.
func (p *parser) parseFieldRefToken() (queryast.FieldRef, error) {
	tok := p.advance()
	if tok == "" {
		return queryast.FieldRef{}, fmt.Errorf("expected a field name")
	}
	if i := strings.IndexByte(tok, '.'); i >= 0 {
		return queryast.FieldRef{Table: tok[:i], Field: tok[i+1:]}, nil
	}
	return queryast.FieldRef{Field: tok}, nil
}

var joinTypes = map[string]queryast.JoinType{
	"INNER":   queryast.InnerJoin,
	"LEFT":    queryast.LeftJoin,
	"RIGHT":   queryast.RightJoin,
	"FULL":    queryast.FullJoin,
	"NATURAL": queryast.NaturalJoin,
}

func (p *parser) parseSource() (queryast.Source, error) {
	left, err := p.parseBaseSource()
	if err != nil {
		return nil, err
	}

	for {
		word := p.peekUpper()
		jt, named := joinTypes[word]
		plainJoin := word == "JOIN"
		if !named && !plainJoin {
			break
		}
		if named {
			p.advance()
		} else {
			jt = queryast.InnerJoin
		}
		if p.peekUpper() == "JOIN" {
			p.advance()
		} else {
			return nil, fmt.Errorf("expected JOIN, found %q", p.peek())
		}

		right, err := p.parseBaseSource()
		if err != nil {
			return nil, err
		}

		var on []queryast.JoinCondition
		if jt != queryast.NaturalJoin {
			if err := p.expectUpper("ON"); err != nil {
				return nil, err
			}
			on, err = p.parseJoinConditions()
			if err != nil {
				return nil, err
			}
		}

		left = &queryast.JoinSource{Left: left, Right: right, JoinType: jt, On: on}
	}

	return left, nil
}

func (p *parser) parseJoinConditions() ([]queryast.JoinCondition, error) {
	var conds []queryast.JoinCondition
	for {
		leftField, err := p.parseFieldRefToken()
		if err != nil {
			return nil, err
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		rightField, err := p.parseFieldRefToken()
		if err != nil {
			return nil, err
		}
		conds = append(conds, queryast.JoinCondition{Left: leftField, Right: rightField})
		if p.peekUpper() == "AND" {
			p.advance()
			continue
		}
		break
	}
	return conds, nil
}

func (p *parser) parseBaseSource() (queryast.Source, error) {
	if p.peek() == "(" {
		p.advance()
		stmt, err := p.parseQueryOrSetOp()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		sq, ok := stmt.(*queryast.SingleQuery)
		if !ok {
			return nil, fmt.Errorf("subquery source must be a single SELECT, not a set operation")
		}
		alias := ""
		if p.peekUpper() == "AS" {
			p.advance()
			alias = p.advance()
		} else if !p.atEnd() && !isReservedWord(p.peekUpper()) {
			alias = p.advance()
		}
		return &queryast.SubQuerySource{Query: sq, Alias: alias}, nil
	}

	name := p.advance()
	if name == "" {
		return nil, fmt.Errorf("expected a table name")
	}
	alias := ""
	if p.peekUpper() == "AS" {
		p.advance()
		alias = p.advance()
	} else if !p.atEnd() && !isReservedWord(p.peekUpper()) {
		alias = p.advance()
	}
	return &queryast.TableSource{Name: name, Alias: alias}, nil
}

var reservedWords = map[string]bool{
	"WHERE": true, "JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "NATURAL": true, "ON": true, "UNION": true, "INTERSECT": true,
	"EXCEPT": true, "TIMES": true, "ALL": true, "MINUS": true, ")": true,
}

func isReservedWord(word string) bool { return reservedWords[word] }

var comparisonOps = map[string]bool{
	"=": true, "<": true, ">": true, "<=": true, ">=": true, "!=": true,
}

func (p *parser) parseWhere() ([]queryast.Condition, error) {
	var conds []queryast.Condition
	for {
		field, err := p.parseFieldRefToken()
		if err != nil {
			return nil, err
		}
		op := p.advance()
		if !comparisonOps[op] {
			return nil, fmt.Errorf("expected a comparison operator, found %q", op)
		}
		valTok := p.advance()
		if valTok == "" {
			return nil, fmt.Errorf("expected a value after %q %q", field.Field, op)
		}
		text, quoted := isQuoted(valTok)
		if !quoted {
			text = valTok
		}

		cond := queryast.Condition{
			Field:    field,
			Operator: op,
			Value:    queryast.Literal{Text: text, IsString: quoted},
		}

		logic := p.peekUpper()
		if logic == "AND" || logic == "OR" {
			p.advance()
			cond.Logic = logic
			conds = append(conds, cond)
			continue
		}
		conds = append(conds, cond)
		break
	}
	return conds, nil
}
