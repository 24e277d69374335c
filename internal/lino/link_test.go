package lino

import "testing"

func TestEscapeReference(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"", ""},
		{"with space", "'with space'"},
		{"with:colon", "'with:colon'"},
		{"with(paren)", "'with(paren)'"},
		{"tab\there", "'tab\there'"},
		{`has"double`, `'has"double'`},
		{"has'single", `"has'single"`},
		{`both"and'quotes`, `'both"and\'quotes'`},
	}
	for _, tc := range cases {
		if got := EscapeReference(tc.in); got != tc.want {
			t.Fatalf("EscapeReference(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLinkFormat(t *testing.T) {
	if got := (Link{}).Format(); got != "()" {
		t.Fatalf("empty link: %q", got)
	}
	if got := Ref("abc").Format(); got != "(abc)" {
		t.Fatalf("id-only link: %q", got)
	}
	l := Group(Ref("int"), Ref("42"))
	if got := l.Format(); got != "(int 42)" {
		t.Fatalf("group link: %q", got)
	}
	withID := Link{ID: "point", HasID: true, Values: []Link{Ref("1"), Ref("2")}}
	if got := withID.Format(); got != "(point: 1 2)" {
		t.Fatalf("identified link: %q", got)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	texts := []string{
		"()",
		"(abc)",
		"(int 42)",
		"(array (int 1) (int 2))",
		"('with space': a b)",
	}
	for _, text := range texts {
		p := &parser{input: text}
		link, err := p.parseLink()
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if got := link.Format(); got != text {
			t.Fatalf("format(parse(%q)) = %q", text, got)
		}
	}
}
