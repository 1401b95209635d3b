package queryparser

import (
	"fmt"

	"github.com/dstrohschein/miniql/src/queryast"
)

func (p *parser) parseCreateTable() (*queryast.CreateTable, error) {
	if err := p.expectUpper("CREATE"); err != nil {
		return nil, err
	}
	if err := p.expectUpper("TABLE"); err != nil {
		return nil, err
	}
	name := p.advance()
	if name == "" {
		return nil, fmt.Errorf("expected a table name after CREATE TABLE")
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}

	var cols []queryast.ColumnDef
	for {
		colName := p.advance()
		if colName == "" {
			return nil, fmt.Errorf("expected a column name")
		}
		colType := p.advance()
		if colType == "" {
			return nil, fmt.Errorf("expected a type for column %q", colName)
		}
		primary := false
		if p.peekUpper() == "PRIMARY" {
			p.advance()
			if err := p.expectUpper("KEY"); err != nil {
				return nil, err
			}
			primary = true
		}
		cols = append(cols, queryast.ColumnDef{Name: colName, Type: colType, PrimaryKey: primary})

		if p.peek() == "," {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return &queryast.CreateTable{Table: name, Columns: cols}, nil
}

func (p *parser) parseDropTable() (*queryast.DropTable, error) {
	if err := p.expectUpper("DROP"); err != nil {
		return nil, err
	}
	if err := p.expectUpper("TABLE"); err != nil {
		return nil, err
	}
	name := p.advance()
	if name == "" {
		return nil, fmt.Errorf("expected a table name after DROP TABLE")
	}
	return &queryast.DropTable{Table: name}, nil
}

func (p *parser) parseInsert() (*queryast.Insert, error) {
	if err := p.expectUpper("INSERT"); err != nil {
		return nil, err
	}
	if err := p.expectUpper("INTO"); err != nil {
		return nil, err
	}
	name := p.advance()
	if name == "" {
		return nil, fmt.Errorf("expected a table name after INSERT INTO")
	}

	var cols []string
	if p.peek() == "(" {
		p.advance()
		for {
			col := p.advance()
			if col == "" {
				return nil, fmt.Errorf("expected a column name")
			}
			cols = append(cols, col)
			if p.peek() == "," {
				p.advance()
				continue
			}
			break
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectUpper("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var values []queryast.Literal
	for {
		tok := p.advance()
		if tok == "" {
			return nil, fmt.Errorf("expected a value")
		}
		text, quoted := isQuoted(tok)
		if !quoted {
			text = tok
		}
		values = append(values, queryast.Literal{Text: text, IsString: quoted})
		if p.peek() == "," {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}

	if len(cols) > 0 && len(cols) != len(values) {
		return nil, fmt.Errorf("column count %d does not match value count %d", len(cols), len(values))
	}

	return &queryast.Insert{Table: name, Columns: cols, Values: values}, nil
}

func (p *parser) parseDelete() (*queryast.Delete, error) {
	if err := p.expectUpper("DELETE"); err != nil {
		return nil, err
	}
	if err := p.expectUpper("FROM"); err != nil {
		return nil, err
	}
	name := p.advance()
	if name == "" {
		return nil, fmt.Errorf("expected a table name after DELETE FROM")
	}

	var where []queryast.Condition
	if p.peekUpper() == "WHERE" {
		p.advance()
		var err error
		where, err = p.parseWhere()
		if err != nil {
			return nil, err
		}
	}
	return &queryast.Delete{Table: name, Where: where}, nil
}
