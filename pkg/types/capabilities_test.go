package types

import "testing"

func TestMatches_Subset(t *testing.T) {
	req := Capabilities{CapBrowserName: "chrome"}
	offered := Capabilities{CapBrowserName: "chrome", CapPlatformName: "linux", "se:vnc": true}
	if !req.Matches(offered) {
		t.Fatalf("expected subset request to match")
	}
}

func TestMatches_MissingKey(t *testing.T) {
	req := Capabilities{CapBrowserName: "chrome", CapPlatformName: "mac"}
	offered := Capabilities{CapBrowserName: "chrome"}
	if req.Matches(offered) {
		t.Fatalf("expected missing platform to fail the match")
	}
}

func TestMatches_ValueMismatch(t *testing.T) {
	req := Capabilities{CapBrowserName: "edge"}
	offered := Capabilities{CapBrowserName: "chrome"}
	if req.Matches(offered) {
		t.Fatalf("edge request must not match chrome stereotype")
	}
}

func TestMatches_NilAndEmptyAreDontCare(t *testing.T) {
	req := Capabilities{CapBrowserName: "chrome", CapPlatformName: nil, CapBrowserVersion: ""}
	offered := Capabilities{CapBrowserName: "chrome"}
	if !req.Matches(offered) {
		t.Fatalf("nil/empty requested values must be ignored")
	}
}

func TestMatches_NumericTypeCompat(t *testing.T) {
	// JSON decoding yields float64; stereotypes built in Go may hold ints.
	req := Capabilities{"se:maxInstances": float64(2)}
	offered := Capabilities{"se:maxInstances": 2}
	if !req.Matches(offered) {
		t.Fatalf("expected 2.0 to match int 2")
	}
	req = Capabilities{"se:maxInstances": float64(3)}
	if req.Matches(offered) {
		t.Fatalf("expected 3.0 not to match int 2")
	}
}

func TestMatches_EmptyRequest(t *testing.T) {
	if !(Capabilities{}).Matches(Capabilities{CapBrowserName: "chrome"}) {
		t.Fatalf("empty request matches anything")
	}
}

func TestClone_Independent(t *testing.T) {
	orig := Capabilities{CapBrowserName: "chrome"}
	cp := orig.Clone()
	cp[CapBrowserName] = "firefox"
	if orig[CapBrowserName] != "chrome" {
		t.Fatalf("clone mutated the original")
	}
	if Capabilities(nil).Clone() != nil {
		t.Fatalf("nil clone should stay nil")
	}
}
