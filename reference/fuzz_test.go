package reference

import "testing"

// FuzzParse exercises Parse against arbitrary input; it must never panic,
// only return an error.
func FuzzParse(f *testing.F) {
	f.Add("lodash@4.17.21")
	f.Add("@scope/tool@2.0.0")
	f.Add("")
	f.Fuzz(func(t *testing.T, data string) {
		_, _ = Parse(data)
	})
}
