package selector

import "testing"

func TestResolveNamesAndRange(t *testing.T) {
	headers := []string{"id", "name", "email", "age", "city"}

	ast, err := Parse("name,3-4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel, err := Resolve(ast, headers)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Selection{1, 2, 3}
	if len(sel) != len(want) {
		t.Fatalf("got %v, want %v", sel, want)
	}
	for i := range want {
		if sel[i] != want[i] {
			t.Fatalf("got %v, want %v", sel, want)
		}
	}
}

func TestResolveInversion(t *testing.T) {
	headers := []string{"id", "name", "email"}
	ast, err := Parse("!id")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel, err := Resolve(ast, headers)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sel) != 2 || sel[0] != 1 || sel[1] != 2 {
		t.Fatalf("got %v", sel)
	}
}

func TestResolveEmptySelectsAll(t *testing.T) {
	headers := []string{"a", "b"}
	ast, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel, err := Resolve(ast, headers)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sel) != 2 {
		t.Fatalf("got %v", sel)
	}
}

func TestResolveUnknownColumn(t *testing.T) {
	headers := []string{"a", "b"}
	ast, _ := Parse("nope")
	if _, err := Resolve(ast, headers); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestResolveEmptyAfterExclusion(t *testing.T) {
	headers := []string{"a"}
	ast, _ := Parse("!a")
	if _, err := Resolve(ast, headers); err == nil {
		t.Fatal("expected error for empty selection after exclusion")
	}
}

func TestSelectPreservesOrderAndDuplicates(t *testing.T) {
	record := [][]byte{[]byte("1"), []byte("2"), []byte("3")}
	sel := Selection{2, 0, 2}
	got := Select(sel, record)
	if string(got[0]) != "3" || string(got[1]) != "1" || string(got[2]) != "3" {
		t.Fatalf("got %v", got)
	}
}
