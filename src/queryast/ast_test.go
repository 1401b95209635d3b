package queryast

import "testing"

func TestSetOpStringNames(t *testing.T) {
	cases := map[SetOp]string{
		Union:     "UNION",
		Intersect: "INTERSECT",
		Except:    "EXCEPT",
		Times:     "TIMES",
		All:       "ALL",
		Minus:     "MINUS",
		SetOp(99): "UNKNOWN",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Fatalf("SetOp(%d).String() = %q, want %q", op, got, want)
		}
	}
}

func TestJoinTypeStringNames(t *testing.T) {
	cases := map[JoinType]string{
		InnerJoin:   "INNER",
		LeftJoin:    "LEFT",
		RightJoin:   "RIGHT",
		FullJoin:    "FULL",
		NaturalJoin: "NATURAL",
		JoinType(99): "UNKNOWN",
	}
	for jt, want := range cases {
		if got := jt.String(); got != want {
			t.Fatalf("JoinType(%d).String() = %q, want %q", jt, got, want)
		}
	}
}
