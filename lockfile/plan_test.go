package lockfile

import (
	"strings"
	"testing"

	"github.com/voltpack/corepm"
)

const sampleLockYAML = `
paths:
  node_modules/left-pad:
    name: left-pad
    version: 1.3.0
    resolved: https://registry.example.com/left-pad/-/left-pad-1.3.0.tgz
    integrity: sha512:abcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcd
  node_modules/@scope/tool:
    name: "@scope/tool"
    version: 2.0.0
    resolved: https://registry.example.com/@scope/tool/-/tool-2.0.0.tgz
    integrity: sha512:ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01ef01
    bin:
      tool: bin/tool.js
  node_modules/@scope/tool/node_modules/left-pad:
    name: left-pad
    version: 1.2.0
    resolved: https://registry.example.com/left-pad/-/left-pad-1.2.0.tgz
    integrity: sha512:23452345234523452345234523452345234523452345234523452345234523452345234523452345234523452345234523452345234523452345234523452345
  packages/app:
    name: app
    version: 0.0.0
    link: true
    resolved: packages/app
`

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(sampleLockYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParseDetectsDuplicatePaths(t *testing.T) {
	dup := `
paths:
  node_modules/a:
    name: a
    version: 1.0.0
  node_modules/a:
    name: a
    version: 2.0.0
`
	_, err := Parse(strings.NewReader(dup))
	if err == nil {
		t.Fatal("Parse with duplicate path succeeded, want LockfileConflict")
	}
	cerr, ok := err.(*corepm.Error)
	if !ok || cerr.Kind != corepm.ErrLockfileConflict {
		t.Fatalf("err = %v, want LockfileConflict", err)
	}
}

func TestBuildPlanOrdering(t *testing.T) {
	doc := parseSample(t)
	plan, err := BuildPlan(doc, Options{ProjectRoot: "/proj", Verify: corepm.VerifyRequired})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	if len(plan.Placements) != 4 {
		t.Fatalf("len(Placements) = %d, want 4", len(plan.Placements))
	}

	// Shallowest depth first; real placements precede workspace links at
	// the same depth; lexicographic within a tie.
	want := []string{
		"/proj/node_modules/left-pad",
		"/proj/packages/app",
		"/proj/node_modules/@scope/tool",
		"/proj/node_modules/@scope/tool/node_modules/left-pad",
	}
	got := make([]string, len(plan.Placements))
	for i, p := range plan.Placements {
		got[i] = p.Path
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Placements[%d] = %s, want %s (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestBuildPlanShims(t *testing.T) {
	doc := parseSample(t)
	plan, err := BuildPlan(doc, Options{ProjectRoot: "/proj", Verify: corepm.VerifyRequired})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Shims) != 1 {
		t.Fatalf("len(Shims) = %d, want 1", len(plan.Shims))
	}
	shim := plan.Shims[0]
	if shim.Name != "tool" {
		t.Errorf("shim.Name = %q, want tool", shim.Name)
	}
	if shim.BinDir != "/proj/node_modules/.bin" {
		t.Errorf("shim.BinDir = %q, want /proj/node_modules/.bin", shim.BinDir)
	}
	if shim.TargetPath != "/proj/node_modules/@scope/tool/bin/tool.js" {
		t.Errorf("shim.TargetPath = %q", shim.TargetPath)
	}
}

func TestBuildPlanVerifyRequiredMissingIntegrity(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
paths:
  node_modules/a:
    name: a
    version: 1.0.0
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = BuildPlan(doc, Options{ProjectRoot: "/proj", Verify: corepm.VerifyRequired})
	if err == nil {
		t.Fatal("BuildPlan succeeded, want IntegrityMissing")
	}
	cerr, ok := err.(*corepm.Error)
	if !ok || cerr.Kind != corepm.ErrIntegrityMissing {
		t.Fatalf("err = %v, want IntegrityMissing", err)
	}
}

func TestBuildPlanVerifySkipAllowsMissingIntegrity(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
paths:
  node_modules/a:
    name: a
    version: 1.0.0
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	plan, err := BuildPlan(doc, Options{ProjectRoot: "/proj", Verify: corepm.VerifySkip})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Placements) != 1 {
		t.Fatalf("len(Placements) = %d, want 1", len(plan.Placements))
	}
}

func TestBuildPlanPlatformSkip(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
paths:
  node_modules/win-only:
    name: win-only
    version: 1.0.0
    integrity: sha512-abcd
    os: [win32]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	plan, err := BuildPlan(doc, Options{ProjectRoot: "/proj", Verify: corepm.VerifyRequired})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Placements) != 1 {
		t.Fatalf("len(Placements) = %d, want 1 (the entry is kept, marked skipped, not dropped)", len(plan.Placements))
	}
	if got := plan.Placements[0].Kind; got != corepm.PlacementSkippedPlatform {
		t.Fatalf("Placements[0].Kind = %v, want PlacementSkippedPlatform", got)
	}
	if len(plan.Shims) != 0 {
		t.Fatalf("len(Shims) = %d, want 0 (a skipped placement produces no dependent shims)", len(plan.Shims))
	}
}

func TestBuildPlanInvalidIntegrity(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
paths:
  node_modules/a:
    name: a
    version: 1.0.0
    integrity: "not-a-digest"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = BuildPlan(doc, Options{ProjectRoot: "/proj", Verify: corepm.VerifyRequired})
	if err == nil {
		t.Fatal("BuildPlan succeeded, want error for malformed integrity")
	}
}
