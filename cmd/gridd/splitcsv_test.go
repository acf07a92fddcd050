package main

import "testing"

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestPickAddr(t *testing.T) {
	cases := []struct {
		explicit bool
		flagAddr string
		cfgAddr  string
		want     string
	}{
		// Flag passed on the command line always wins, even at the default.
		{true, ":4444", ":9999", ":4444"},
		{true, ":8080", ":9999", ":8080"},
		// Otherwise the config file value wins over the flag default.
		{false, ":4444", ":9999", ":9999"},
		// No config value falls back to the flag default.
		{false, ":4444", "", ":4444"},
	}
	for _, c := range cases {
		if got := pickAddr(c.explicit, c.flagAddr, c.cfgAddr); got != c.want {
			t.Fatalf("pickAddr(%v, %q, %q) = %q, want %q", c.explicit, c.flagAddr, c.cfgAddr, got, c.want)
		}
	}
}
