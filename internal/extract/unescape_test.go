package extract

import (
	"errors"
	"testing"

	"golang.org/x/net/html"
)

func TestUnescapeNamedEntities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "<br>", want: "\n"},
		{in: "a&nbsp;", want: "a "},
		{in: "&lt;", want: "<"},
		{in: "&gt;", want: ">"},
		{in: "&amp;", want: "&"},
		{in: "&quot;", want: "\""},
		{in: "&apos;", want: "'"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := Unescape(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnescapeMatchesHTMLPackage(t *testing.T) {
	t.Parallel()

	// &nbsp; and <br> intentionally decode to ASCII here, so only the
	// entities with identical meaning are compared.
	inputs := []string{
		"a &lt;b&gt; c",
		"fish &amp; chips",
		"&quot;quoted&quot; and &apos;single&apos;",
		"x&lt;&lt;&gt;&gt;y",
		"&#65;&#66;&#67;",
		"caf&#233;",
	}

	for _, in := range inputs {
		got, err := Unescape(in)
		if err != nil {
			t.Fatalf("Unescape(%q): unexpected error: %v", in, err)
		}
		if want := html.UnescapeString(in); got != want {
			t.Errorf("Unescape(%q) = %q, html.UnescapeString = %q", in, got, want)
		}
	}
}

func TestUnescapeNumericReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii letter", in: "&#65;", want: "A"},
		{name: "newline", in: "&#10;", want: "\n"},
		{name: "leading zeros", in: "&#0065;", want: "A"},
		{name: "embedded", in: "a&#33;b", want: "a!b"},
		{name: "two byte code point", in: "caf&#233;", want: "café"},
		{name: "four byte code point", in: "&#128512;", want: "😀"},
		{name: "space reference at start is dropped", in: "&#32;x", want: "x"},
		{name: "space reference after text", in: "a&#32;b", want: "a b"},
		{name: "repeated space references at start", in: "&#32;&#32;x", want: "x"},
		{name: "non digit aborts", in: "&#6x;", want: "&#6x;"},
		{name: "no digits", in: "&#;", want: "&#;"},
		{name: "zero", in: "&#0;", want: "&#0;"},
		{name: "surrogate", in: "&#55296;", want: "&#55296;"},
		{name: "overflow saturates", in: "&#99999999999999999999;", want: "&#99999999999999999999;"},
		{name: "unterminated", in: "&#65", want: "&#65"},
		{name: "restart after abort", in: "&#&#65;", want: "&#A"},
		{name: "hex is not supported", in: "&#x41;", want: "&#x41;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Unescape(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnescapeSinglePass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "escaped entity is decoded once", in: "&amp;lt;", want: "&lt;"},
		{name: "escaped numeric reference is decoded once", in: "&amp;#65;", want: "&#65;"},
		{name: "double escaped ampersand", in: "&amp;amp;", want: "&amp;"},
		{name: "repeated ampersand restarts match", in: "&&lt;", want: "&<"},
		{name: "broken entity stays literal", in: "&l&gt;", want: "&l>"},
		{name: "adjacent entities", in: "&lt;&gt;&amp;", want: "<>&"},
		{name: "line breaks", in: "one<br>two<br><br>three", want: "one\ntwo\n\nthree"},
		{name: "mixed", in: " 22/11&nbsp;4:00 &quot;hi&quot;&#33;", want: "22/11 4:00 \"hi\"!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Unescape(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnescapeNoOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text", in: "hello world", want: "hello world"},
		{name: "leading space dropped", in: " hello", want: "hello"},
		{name: "all leading spaces dropped", in: "  hello", want: "hello"},
		{name: "inner spaces kept", in: " a  b", want: "a  b"},
		{name: "single space", in: " ", want: ""},
		{name: "trailing space kept", in: "hello ", want: "hello "},
		{name: "lone ampersand", in: "a & b", want: "a & b"},
		{name: "unicode", in: " 日本語 ☕", want: "日本語 ☕"},
		{name: "tag that is not a rule", in: "<b>bold</b>", want: "<b>bold</b>"},
		{name: "leading nbsp is dropped", in: "&nbsp;x", want: "x"},
		{name: "space then nbsp dropped", in: " &nbsp; x", want: "x"},
		{name: "nbsp after text kept", in: "a&nbsp;b", want: "a b"},
		{name: "leading line break kept", in: "<br> x", want: "\n x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Unescape(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnescapeBytesInPlace(t *testing.T) {
	t.Parallel()

	buf := []byte("a&lt;b&#67;")
	out, err := UnescapeBytes(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "a<bC" {
		t.Errorf("expected %q, got %q", "a<bC", string(out))
	}
	if &out[0] != &buf[0] {
		t.Error("expected the result to share the input buffer")
	}
}

func TestUnescapeInvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := UnescapeBytes([]byte{'a', 0xff, 'b'})
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}
