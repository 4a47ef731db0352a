package reference

import "testing"

func TestParseUnscoped(t *testing.T) {
	ref, err := Parse("lodash@4.17.21")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, ok := ref.(Versioned)
	if !ok {
		t.Fatalf("Parse(%q) not versioned", "lodash@4.17.21")
	}
	if v.Name() != "lodash" || v.Version() != "4.17.21" {
		t.Fatalf("Name/Version = %q/%q, want lodash/4.17.21", v.Name(), v.Version())
	}
	if v.String() != "lodash@4.17.21" {
		t.Fatalf("String() = %q", v.String())
	}
}

func TestParseScoped(t *testing.T) {
	ref, err := Parse("@scope/tool@2.0.0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ref.Name() != "@scope/tool" {
		t.Fatalf("Name() = %q, want @scope/tool", ref.Name())
	}
}

func TestParseNameOnly(t *testing.T) {
	ref, err := Parse("lodash")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := ref.(Versioned); ok {
		t.Fatal("Parse(\"lodash\") is Versioned, want unversioned")
	}
	if ref.Name() != "lodash" {
		t.Fatalf("Name() = %q", ref.Name())
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "@", "@scope", "Upper@1.0.0", "-leading@1.0.0"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestParseVersioned(t *testing.T) {
	if _, err := ParseVersioned("lodash"); err == nil {
		t.Fatal("ParseVersioned(\"lodash\") succeeded, want error (no version)")
	}
	v, err := ParseVersioned("lodash@4.17.21")
	if err != nil {
		t.Fatalf("ParseVersioned: %v", err)
	}
	if v.Version() != "4.17.21" {
		t.Fatalf("Version() = %q", v.Version())
	}
}

func TestSplitScope(t *testing.T) {
	cases := []struct{ name, scope, component string }{
		{"@scope/tool", "scope", "tool"},
		{"lodash", "", "lodash"},
	}
	for _, c := range cases {
		scope, component := SplitScope(c.name)
		if scope != c.scope || component != c.component {
			t.Errorf("SplitScope(%q) = %q, %q, want %q, %q", c.name, scope, component, c.scope, c.component)
		}
	}
}

func TestIsValidName(t *testing.T) {
	valid := []string{"lodash", "left-pad", "@scope/tool", "a.b_c-1"}
	invalid := []string{"", "Upper", "@scope", "@scope/", "/leading"}

	for _, n := range valid {
		if !IsValidName(n) {
			t.Errorf("IsValidName(%q) = false, want true", n)
		}
	}
	for _, n := range invalid {
		if IsValidName(n) {
			t.Errorf("IsValidName(%q) = true, want false", n)
		}
	}
}
