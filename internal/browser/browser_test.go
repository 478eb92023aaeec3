package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

func TestIsMainDocument(t *testing.T) {
	main := proto.PageFrameID("frame-main")
	iframe := proto.PageFrameID("frame-ad")

	tests := []struct {
		name         string
		resourceType proto.NetworkResourceType
		frame        proto.PageFrameID
		want         bool
	}{
		{"top frame document", proto.NetworkResourceTypeDocument, main, true},
		{"iframe document", proto.NetworkResourceTypeDocument, iframe, false},
		{"script in top frame", proto.NetworkResourceTypeScript, main, false},
		{"xhr in top frame", proto.NetworkResourceTypeXHR, main, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMainDocument(tt.resourceType, tt.frame, main); got != tt.want {
				t.Errorf("isMainDocument(%v, %v) = %v, want %v", tt.resourceType, tt.frame, got, tt.want)
			}
		})
	}
}

func TestFormatConsoleArgs(t *testing.T) {
	args := []*proto.RuntimeRemoteObject{
		{Value: gson.New(42)},
		{Description: "TypeError: x is undefined"},
		nil,
	}

	got := formatConsoleArgs(args)
	want := "42 TypeError: x is undefined"
	if got != want {
		t.Errorf("formatConsoleArgs() = %q, want %q", got, want)
	}
}

func TestFormatConsoleArgs_Empty(t *testing.T) {
	if got := formatConsoleArgs(nil); got != "" {
		t.Errorf("formatConsoleArgs(nil) = %q, want empty", got)
	}
}
