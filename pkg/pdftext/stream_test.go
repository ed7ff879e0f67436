package pdftext_test

import (
	"testing"

	"github.com/JaimeStill/sift/pkg/pdftext"
)

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "single Tj",
			content: "BT /F1 12 Tf 72 720 Td (Hello World) Tj ET",
			want:    "Hello World\n",
		},
		{
			name:    "lines by Td",
			content: "BT 72 720 Td (first) Tj 0 -14 Td (second) Tj ET",
			want:    "first\nsecond\n",
		},
		{
			name:    "TJ with kerning",
			content: "BT [(Hel) -20 (lo) -400 (World)] TJ ET",
			want:    "Hello World\n",
		},
		{
			name:    "quote operators",
			content: "BT (one) Tj (two) ' 1 2 (three) \" ET",
			want:    "one\ntwo\nthree\n",
		},
		{
			name:    "escapes",
			content: `BT (a\(b\) c\\d \101) Tj ET`,
			want:    "a(b) c\\d A\n",
		},
		{
			name:    "nested parentheses",
			content: "BT (f(x) = y) Tj ET",
			want:    "f(x) = y\n",
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj ET",
			want:    "Hello\n",
		},
		{
			name:    "utf16 hex string",
			content: "BT <FEFF00480069> Tj ET",
			want:    "Hi\n",
		},
		{
			name:    "comments and dictionaries",
			content: "% comment (ignored) Tj\n/P << /MCID 0 >> BDC BT (marked) Tj ET EMC",
			want:    "marked\n",
		},
		{
			name:    "inline image skipped",
			content: "BI /W 1 /H 1 ID \x00\xff(Tj EI Q BT (after) Tj ET",
			want:    "after\n",
		},
		{
			name:    "no text",
			content: "q 1 0 0 1 0 0 cm 0 0 m 10 10 l S Q",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pdftext.DecodeContent([]byte(tt.content)); got != tt.want {
				t.Errorf("DecodeContent = %q, want %q", got, tt.want)
			}
		})
	}
}
