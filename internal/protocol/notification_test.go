package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Notification
	}{
		{
			name: "new content with surrounding whitespace",
			raw:  "NEW_CONTENT: ad1.png ",
			want: Notification{Kind: KindNewContent, Filename: "ad1.png"},
		},
		{
			name: "new content plain",
			raw:  "NEW_CONTENT:promo.mp4",
			want: Notification{Kind: KindNewContent, Filename: "promo.mp4"},
		},
		{
			name: "degenerate empty filename",
			raw:  "NEW_CONTENT:  ",
			want: Notification{Kind: KindNewContent, Filename: ""},
		},
		{
			name: "unknown line",
			raw:  "hello",
			want: Notification{Kind: KindUnknown, Raw: "hello"},
		},
		{
			name: "prefix must match exactly",
			raw:  "new_content:ad1.png",
			want: Notification{Kind: KindUnknown, Raw: "new_content:ad1.png"},
		},
		{
			name: "empty line",
			raw:  "",
			want: Notification{Kind: KindUnknown, Raw: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestFormatNewContentRoundtrip(t *testing.T) {
	line := FormatNewContent("ad1.png")
	if line != "NEW_CONTENT:ad1.png" {
		t.Fatalf("FormatNewContent() = %q", line)
	}
	got := Parse(line)
	if got.Kind != KindNewContent || got.Filename != "ad1.png" {
		t.Fatalf("roundtrip parse = %+v", got)
	}
}
