package repository

import "testing"

func TestBuild_Empty(t *testing.T) {
	q := Build()

	if len(q.Conditions()) != 0 {
		t.Errorf("expected no conditions, got %d", len(q.Conditions()))
	}
	if len(q.Orders()) != 0 {
		t.Errorf("expected no orders, got %d", len(q.Orders()))
	}
	if q.LimitValue() != 0 {
		t.Errorf("LimitValue() = %d, want 0", q.LimitValue())
	}
	if q.OffsetValue() != 0 {
		t.Errorf("OffsetValue() = %d, want 0", q.OffsetValue())
	}
}

func TestBuild_Conditions(t *testing.T) {
	q := Build(
		WithID(42),
		WithConditionIn("category_id", []int64{1, 2, 3}),
		WithTitle("Transformers"),
	)

	conds := q.Conditions()
	if len(conds) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conds))
	}

	if conds[0].Field() != "id" || conds[0].In() {
		t.Errorf("condition 0: got %s (in=%v), want id equality", conds[0].Field(), conds[0].In())
	}
	if conds[1].Field() != "category_id" || !conds[1].In() {
		t.Errorf("condition 1: got %s (in=%v), want category_id IN", conds[1].Field(), conds[1].In())
	}
	if conds[2].Field() != "title" || conds[2].Value() != "Transformers" {
		t.Errorf("condition 2: got %s = %v, want title = Transformers", conds[2].Field(), conds[2].Value())
	}
}

func TestCondition_String(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want string
	}{
		{"equality", WithCondition("name", "Curie"), "name = Curie"},
		{"in", WithConditionIn("id", []int64{7, 9}), "id IN [7 9]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Build(tt.opt)
			if got := q.Conditions()[0].String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_Orders(t *testing.T) {
	q := Build(
		WithOrderAsc("name"),
		WithOrderDesc("id"),
		WithOrderDescNullsLast("publication_date"),
	)

	orders := q.Orders()
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}

	if orders[0].Field() != "name" || !orders[0].Ascending() || orders[0].NullsLast() {
		t.Errorf("order 0: got %s asc=%v nullsLast=%v, want name ASC", orders[0].Field(), orders[0].Ascending(), orders[0].NullsLast())
	}
	if orders[1].Field() != "id" || orders[1].Ascending() {
		t.Errorf("order 1: got %s asc=%v, want id DESC", orders[1].Field(), orders[1].Ascending())
	}
	if orders[2].Field() != "publication_date" || orders[2].Ascending() || !orders[2].NullsLast() {
		t.Errorf("order 2: got %s asc=%v nullsLast=%v, want publication_date DESC NULLS LAST", orders[2].Field(), orders[2].Ascending(), orders[2].NullsLast())
	}
}

func TestWithPagination(t *testing.T) {
	q := Build(WithPagination(10, 20)...)

	if q.LimitValue() != 10 {
		t.Errorf("LimitValue() = %d, want 10", q.LimitValue())
	}
	if q.OffsetValue() != 20 {
		t.Errorf("OffsetValue() = %d, want 20", q.OffsetValue())
	}
}

func TestWithRecencyOrder(t *testing.T) {
	q := Build(WithRecencyOrder()...)

	orders := q.Orders()
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].Field() != "publication_date" || orders[0].Ascending() || !orders[0].NullsLast() {
		t.Errorf("order 0: got %s, want publication_date DESC NULLS LAST", orders[0].Field())
	}
	if orders[1].Field() != "id" || orders[1].Ascending() {
		t.Errorf("order 1: got %s, want id DESC", orders[1].Field())
	}
}

func TestQuery_AccessorsCopy(t *testing.T) {
	q := Build(WithID(1), WithOrderAsc("id"))

	conds := q.Conditions()
	conds[0] = Condition{field: "mutated"}
	if q.Conditions()[0].Field() != "id" {
		t.Error("Conditions() must return a copy")
	}

	orders := q.Orders()
	orders[0] = Order{field: "mutated"}
	if q.Orders()[0].Field() != "id" {
		t.Error("Orders() must return a copy")
	}
}
