package rdbms

import (
	"testing"
)

func TestTableRef(t *testing.T) {
	// Test 1 - parse and format.
	input := "my-project.staging_dataset.global_data"
	ref, err := ParseTableRef(input)
	if err != nil {
		t.Fatalf("test 1: unexpected error: %v", err)
	}
	if ref.Project != "my-project" || ref.Dataset != "staging_dataset" || ref.Table != "global_data" {
		t.Fatalf("test 1: unexpected components: %+v", ref)
	}
	if got := ref.String(); got != input {
		t.Fatalf("test 1: expected %q; got %q", input, got)
	}
	// Test 2 - backticks are removed.
	ref, err = ParseTableRef("`p.d.t`")
	if err != nil || ref.String() != "p.d.t" {
		t.Fatalf("test 2: expected p.d.t; got %v (err = %v)", ref, err)
	}
	// Test 3 - wrong number of parts.
	if _, err = ParseTableRef("d.t"); err == nil {
		t.Fatal("test 3: expected error for two part reference")
	}
	// Test 4 - invalid characters.
	if _, err = ParseTableRef("p.d.t; drop table x"); err == nil {
		t.Fatal("test 4: expected error for invalid table name")
	}
	// Test 5 - WithTable leaves the original untouched.
	other := ref.WithTable("usa_health_data")
	if other.String() != "p.d.usa_health_data" || ref.Table != "t" {
		t.Fatalf("test 5: unexpected result %v, %v", other, ref)
	}
}
