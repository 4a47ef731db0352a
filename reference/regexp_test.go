package reference

import "testing"

func TestNameRegexp(t *testing.T) {
	cases := []struct {
		input string
		match bool
	}{
		{"lodash", true},
		{"left-pad", true},
		{"a.b_c", true},
		{"@scope/tool", true},
		{"@a/b", true},
		{"", false},
		{"Upper", false},
		{"@scope", false},
		{"@scope/", false},
		{"-leading", false},
		{"trailing-", false},
	}

	for _, c := range cases {
		got := anchoredNameRegexp.MatchString(c.input)
		if got != c.match {
			t.Errorf("anchoredNameRegexp.MatchString(%q) = %v, want %v", c.input, got, c.match)
		}
	}
}

func TestVersionRegexp(t *testing.T) {
	cases := []struct {
		input string
		match bool
	}{
		{"1.2.3", true},
		{"1.2.3-beta.1", true},
		{"0.0.0+build.5", true},
		{"", false},
		{"-1.0.0", false},
	}

	for _, c := range cases {
		got := anchoredVersionRegexp.MatchString(c.input)
		if got != c.match {
			t.Errorf("anchoredVersionRegexp.MatchString(%q) = %v, want %v", c.input, got, c.match)
		}
	}
}

func TestReferenceRegexpCaptures(t *testing.T) {
	matches := ReferenceRegexp.FindStringSubmatch("@scope/tool@2.0.0")
	if matches == nil {
		t.Fatal("no match")
	}
	if matches[1] != "@scope/tool" || matches[2] != "2.0.0" {
		t.Fatalf("captures = %q, %q, want @scope/tool, 2.0.0", matches[1], matches[2])
	}
}
