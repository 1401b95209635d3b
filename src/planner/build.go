package planner

import (
	"fmt"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/queryast"
	"github.com/dstrohschein/miniql/src/schema"
)

// Build compiles a parsed statement into a plan against sch. Every
// error returned here is user-visible per spec.md §7 (malformed query,
// unknown table/column, ambiguous column, type mismatch in a literal,
// mismatched set-operation arity, column count mismatch on insert) —
// Build never itself produces an internal/status error, since nothing
// here touches disk or the cache.
func Build(stmt queryast.Statement, sch *schema.Schema) (*Statement, error) {
	switch t := stmt.(type) {
	case *queryast.SingleQuery:
		node, err := buildQuery(t, sch)
		if err != nil {
			return nil, err
		}
		return &Statement{Query: node}, nil

	case *queryast.SetOperation:
		node, err := buildSetOp(t, sch)
		if err != nil {
			return nil, err
		}
		return &Statement{Query: node}, nil

	case *queryast.Insert:
		plan, err := buildInsert(t, sch)
		if err != nil {
			return nil, err
		}
		return &Statement{InsertInto: plan}, nil

	case *queryast.CreateTable:
		plan, err := buildCreateTable(t)
		if err != nil {
			return nil, err
		}
		return &Statement{CreateTable: plan}, nil

	case *queryast.DropTable:
		return &Statement{DropTable: &DropTablePlan{Table: t.Table}}, nil

	case *queryast.Delete:
		plan, err := buildDelete(t, sch)
		if err != nil {
			return nil, err
		}
		return &Statement{DeleteFrom: plan}, nil

	default:
		return nil, fmt.Errorf("unrecognized statement type %T", stmt)
	}
}

func buildQuery(sq *queryast.SingleQuery, sch *schema.Schema) (Node, error) {
	source, err := resolveSource(sq.Source, sch)
	if err != nil {
		return nil, err
	}

	conditions, err := compileConditions(sq.Where, source.OutputFields())
	if err != nil {
		return nil, err
	}

	var body Node = source
	if len(conditions) > 0 {
		if scan, ok := source.(*SeqScan); ok {
			scan.Conditions = append(scan.Conditions, conditions...)
			upgradeOpCode(scan)
		} else {
			body = &Filter{Source: source, Conditions: conditions}
		}
	}

	fields, err := resolveProjection(sq.Columns, body.OutputFields())
	if err != nil {
		return nil, err
	}
	return &Project{Source: body, Fields: fields}, nil
}

func buildSetOp(so *queryast.SetOperation, sch *schema.Schema) (Node, error) {
	left, err := buildStatementNode(so.Left, sch)
	if err != nil {
		return nil, err
	}
	right, err := buildStatementNode(so.Right, sch)
	if err != nil {
		return nil, err
	}
	var op SetOp
	switch so.Op {
	case queryast.Union:
		op = Union
	case queryast.Intersect:
		op = Intersect
	case queryast.Except:
		op = Except
	case queryast.Times:
		op = Times
	case queryast.All:
		op = All
	case queryast.Minus:
		op = Minus
	default:
		return nil, fmt.Errorf("unrecognized set operator %v", so.Op)
	}

	// Times is a Cartesian product: its output is the concatenation of
	// both operand schemas, so operand arity need not match. Every
	// other operator performs row-wise set logic and requires the two
	// operands to describe the same columns.
	if op != Times && len(left.OutputFields()) != len(right.OutputFields()) {
		return nil, fmt.Errorf("set operation operands have mismatched column counts: %d vs %d",
			len(left.OutputFields()), len(right.OutputFields()))
	}
	return &SetOperation{Op: op, Left: left, Right: right}, nil
}

func buildStatementNode(stmt queryast.Statement, sch *schema.Schema) (Node, error) {
	switch t := stmt.(type) {
	case *queryast.SingleQuery:
		return buildQuery(t, sch)
	case *queryast.SetOperation:
		return buildSetOp(t, sch)
	default:
		return nil, fmt.Errorf("only SELECT statements may appear in a set operation")
	}
}

// resolveSource turns a queryast.Source into a plan Node whose output
// fields are tagged with the table/alias name queries reference them
// by.
func resolveSource(src queryast.Source, sch *schema.Schema) (Node, error) {
	switch s := src.(type) {
	case *queryast.TableSource:
		table, err := sch.Table(s.Name)
		if err != nil {
			return nil, fmt.Errorf("unknown table %q", s.Name)
		}
		label := s.Name
		if s.Alias != "" {
			label = s.Alias
		}
		fields := make([]ResolvedField, len(table.Fields))
		for i, f := range table.Fields {
			fields[i] = ResolvedField{
				Table: label,
				Name:  f.Identifier,
				Type:  f.Type,
				Index: i,
				IsKey: i == table.KeyPosition,
			}
		}
		return &SeqScan{TableID: s.Name, OpCode: SelectFTS, Fields: fields}, nil

	case *queryast.SubQuerySource:
		inner, err := buildQuery(s.Query, sch)
		if err != nil {
			return nil, err
		}
		label := s.Alias
		innerFields := inner.OutputFields()
		renamed := make([]ResolvedField, len(innerFields))
		for i, f := range innerFields {
			renamed[i] = f
			if label != "" {
				renamed[i].Table = label
			}
			renamed[i].Index = i
		}
		return &Project{Source: inner, Fields: renamed}, nil

	case *queryast.JoinSource:
		left, err := resolveSource(s.Left, sch)
		if err != nil {
			return nil, err
		}
		right, err := resolveSource(s.Right, sch)
		if err != nil {
			return nil, err
		}

		var jt JoinType
		switch s.JoinType {
		case queryast.InnerJoin:
			jt = InnerJoin
		case queryast.LeftJoin:
			jt = LeftJoin
		case queryast.RightJoin:
			jt = RightJoin
		case queryast.FullJoin:
			jt = FullJoin
		case queryast.NaturalJoin:
			jt = NaturalJoin
		}

		var pairs []JoinFieldPair
		if s.JoinType == queryast.NaturalJoin {
			pair, err := naturalJoinPair(left.OutputFields(), right.OutputFields())
			if err != nil {
				return nil, err
			}
			pairs = []JoinFieldPair{pair}
		} else {
			pairs, err = resolveJoinConditions(s.On, left.OutputFields(), right.OutputFields())
			if err != nil {
				return nil, err
			}
		}

		return &Join{Left: left, Right: right, JoinType: jt, Pairs: pairs}, nil

	default:
		return nil, fmt.Errorf("unrecognized source type %T", src)
	}
}

// naturalJoinPair finds the first column name (in left's declaration
// order) present on both sides — "first match wins", per spec.md §4.6.
func naturalJoinPair(left, right []ResolvedField) (JoinFieldPair, error) {
	for _, lf := range left {
		for _, rf := range right {
			if lf.Name == rf.Name {
				return JoinFieldPair{Left: lf, Right: rf}, nil
			}
		}
	}
	return JoinFieldPair{}, fmt.Errorf("natural join: no shared column name found between sides")
}

func resolveJoinConditions(conds []queryast.JoinCondition, left, right []ResolvedField) ([]JoinFieldPair, error) {
	pairs := make([]JoinFieldPair, 0, len(conds))
	for _, c := range conds {
		a, errA := resolveFieldRef(c.Left, append(append([]ResolvedField{}, left...), right...))
		if errA != nil {
			return nil, errA
		}
		b, errB := resolveFieldRef(c.Right, append(append([]ResolvedField{}, left...), right...))
		if errB != nil {
			return nil, errB
		}

		aOnLeft, aOnRight := belongsTo(a, left), belongsTo(a, right)
		bOnLeft, bOnRight := belongsTo(b, left), belongsTo(b, right)

		switch {
		case aOnLeft && bOnRight:
			pairs = append(pairs, JoinFieldPair{Left: a, Right: b})
		case aOnRight && bOnLeft:
			pairs = append(pairs, JoinFieldPair{Left: b, Right: a})
		default:
			return nil, fmt.Errorf("join condition %s = %s must reference one column from each side", c.Left.Field, c.Right.Field)
		}
	}
	return pairs, nil
}

func belongsTo(f ResolvedField, side []ResolvedField) bool {
	for _, s := range side {
		if s.Table == f.Table && s.Name == f.Name {
			return true
		}
	}
	return false
}

// resolveFieldRef resolves a possibly-qualified field reference against
// a candidate field list. An unqualified reference must be unambiguous.
func resolveFieldRef(ref queryast.FieldRef, candidates []ResolvedField) (ResolvedField, error) {
	if ref.Table != "" {
		for _, f := range candidates {
			if f.Table == ref.Table && f.Name == ref.Field {
				return f, nil
			}
		}
		return ResolvedField{}, fmt.Errorf("unknown column %s.%s", ref.Table, ref.Field)
	}

	var match ResolvedField
	count := 0
	for _, f := range candidates {
		if f.Name == ref.Field {
			match = f
			count++
		}
	}
	switch count {
	case 0:
		return ResolvedField{}, fmt.Errorf("unknown column %q", ref.Field)
	case 1:
		return match, nil
	default:
		return ResolvedField{}, fmt.Errorf("ambiguous column %q", ref.Field)
	}
}

func compileConditions(conds []queryast.Condition, candidates []ResolvedField) ([]Condition, error) {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		field, err := resolveFieldRef(c.Field, candidates)
		if err != nil {
			return nil, err
		}
		value, err := codec.ParseLiteral(c.Value.Text, field.Type)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s for column %q: %w", c.Value.Text, field.Type, field.Name, err)
		}
		out = append(out, Condition{Field: field, Operator: c.Operator, Value: value, Logic: c.Logic})
	}
	return out, nil
}

// upgradeOpCode folds any condition targeting the scan's own primary
// key into a bounded cursor range: an equality makes it a unique-key
// lookup; any other comparison operator narrows it to a range. Low/High
// are only a positioning hint for the cursor — every condition is still
// re-checked per row by the executor, so an over-wide bound here never
// produces a wrong result, only a slower scan.
func upgradeOpCode(scan *SeqScan) {
	var low, high []byte
	sawKeyEquality := false
	sawKeyCondition := false

	for _, c := range scan.Conditions {
		if !c.Field.IsKey {
			continue
		}
		sawKeyCondition = true
		switch c.Operator {
		case "=":
			sawKeyEquality = true
			low, high = c.Value, c.Value
		case ">", ">=":
			if low == nil || greaterBytes(c.Value, low) {
				low = c.Value
			}
		case "<", "<=":
			if high == nil || lessBytes(c.Value, high) {
				high = c.Value
			}
		}
	}

	if !sawKeyCondition {
		return
	}
	if sawKeyEquality {
		scan.OpCode = SelectKeyUnique
		scan.Low, scan.High = low, high
		return
	}
	scan.OpCode = SelectKeyRange
	scan.Low, scan.High = low, high
}

func greaterBytes(a, b []byte) bool {
	for i := range a {
		if i >= len(b) {
			return true
		}
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func resolveProjection(items []queryast.SelectItem, source []ResolvedField) ([]ResolvedField, error) {
	if len(items) == 1 && items[0].Star {
		return append([]ResolvedField{}, source...), nil
	}
	out := make([]ResolvedField, 0, len(items))
	for _, item := range items {
		f, err := resolveFieldRef(queryast.FieldRef{Table: item.Table, Field: item.Field}, source)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func buildInsert(ins *queryast.Insert, sch *schema.Schema) (*InsertPlan, error) {
	table, err := sch.Table(ins.Table)
	if err != nil {
		return nil, fmt.Errorf("unknown table %q", ins.Table)
	}

	columns := ins.Columns
	if len(columns) == 0 {
		columns = make([]string, len(table.Fields))
		for i, f := range table.Fields {
			columns[i] = f.Identifier
		}
	}
	if len(columns) != len(ins.Values) {
		return nil, fmt.Errorf("column count %d does not match value count %d", len(columns), len(ins.Values))
	}
	if len(columns) != len(table.Fields) {
		return nil, fmt.Errorf("table %q has %d columns, insert supplied %d", ins.Table, len(table.Fields), len(columns))
	}

	encoded := make([][]byte, len(table.Fields))
	for i, col := range columns {
		idx := table.FieldIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column %q on table %q", col, ins.Table)
		}
		value, err := codec.ParseLiteral(ins.Values[i].Text, table.Fields[idx].Type)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s for column %q: %w", ins.Values[i].Text, table.Fields[idx].Type, col, err)
		}
		encoded[idx] = value
	}

	var key []byte
	var row []byte
	for i, b := range encoded {
		if i == table.KeyPosition {
			key = b
		} else {
			row = append(row, b...)
		}
	}
	return &InsertPlan{Table: ins.Table, Key: key, Row: row}, nil
}

func buildCreateTable(ct *queryast.CreateTable) (*CreateTablePlan, error) {
	if len(ct.Columns) == 0 {
		return nil, fmt.Errorf("CREATE TABLE %q must declare at least one column", ct.Table)
	}
	fields := make([]schema.Field, len(ct.Columns))
	keyPosition := 0
	foundExplicitKey := false
	for i, c := range ct.Columns {
		t, err := codec.TypeFromString(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		fields[i] = schema.Field{Identifier: c.Name, Type: t}
		if c.PrimaryKey {
			if foundExplicitKey {
				return nil, fmt.Errorf("CREATE TABLE %q declares more than one PRIMARY KEY column", ct.Table)
			}
			keyPosition = i
			foundExplicitKey = true
		}
	}
	return &CreateTablePlan{Table: schema.TableSchema{
		Name:        ct.Table,
		Fields:      fields,
		KeyPosition: keyPosition,
		Kind:        schema.Ordinary,
	}}, nil
}

func buildDelete(del *queryast.Delete, sch *schema.Schema) (*DeletePlan, error) {
	table, err := sch.Table(del.Table)
	if err != nil {
		return nil, fmt.Errorf("unknown table %q", del.Table)
	}
	fields := make([]ResolvedField, len(table.Fields))
	for i, f := range table.Fields {
		fields[i] = ResolvedField{Table: del.Table, Name: f.Identifier, Type: f.Type, Index: i, IsKey: i == table.KeyPosition}
	}
	scan := &SeqScan{TableID: del.Table, OpCode: SelectFTS, Fields: fields}

	conditions, err := compileConditions(del.Where, fields)
	if err != nil {
		return nil, err
	}
	scan.Conditions = conditions
	upgradeOpCode(scan)

	return &DeletePlan{Table: del.Table, Scan: scan}, nil
}
