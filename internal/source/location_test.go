package source

import (
	"errors"
	"testing"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Location
	}{
		{"ruby caller", "/app/main.rb:12:in `block in run'", Location{Path: "/app/main.rb", Line: 12}},
		{"path and line", "lib/a.rb:3", Location{Path: "lib/a.rb", Line: 3}},
		{"trailing words", "x.rb:7 extra words", Location{Path: "x.rb", Line: 7}},
		{"drive letter", "C:/work/app.rb:41:in `<main>'", Location{Path: "C:/work/app.rb", Line: 41}},
		{"leading spaces", "   y.rb:1", Location{Path: "y.rb", Line: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame(tt.frame)
			if err != nil {
				t.Fatalf("ParseFrame(%q) error: %v", tt.frame, err)
			}
			if got != tt.want {
				t.Errorf("ParseFrame(%q) = %+v, want %+v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestParseFrameRejects(t *testing.T) {
	for _, frame := range []string{"", "   ", "no-location-here", "file.rb:abc", ":12"} {
		if _, err := ParseFrame(frame); !errors.Is(err, ErrBadFrame) {
			t.Errorf("ParseFrame(%q) err = %v, want ErrBadFrame", frame, err)
		}
	}
}

func TestLocationValid(t *testing.T) {
	if (Location{Path: "", Line: 3}).Valid() {
		t.Error("empty path is valid")
	}
	if (Location{Path: "a.rb", Line: 0}).Valid() {
		t.Error("zero line is valid")
	}
	if !(Location{Path: "a.rb", Line: 1}).Valid() {
		t.Error("a.rb:1 is not valid")
	}
}

func TestNormalizePath(t *testing.T) {
	decomposed := "cafe\u0301.rb"
	composed := "caf\u00e9.rb"
	if got := NormalizePath(decomposed); got != composed {
		t.Errorf("NormalizePath(%q) = %q, want %q", decomposed, got, composed)
	}
	if got := NormalizePath("plain.rb"); got != "plain.rb" {
		t.Errorf("NormalizePath(plain.rb) = %q", got)
	}
}

func TestPathFilter(t *testing.T) {
	f := NewPathFilter()
	f.Add("vendor/")
	f.Add("vendor/")

	tests := []struct {
		path string
		want bool
	}{
		{"/app/main.rb", true},
		{"/app/main.py", false},
		{"/usr/lib/ruby/3.3.0/set.rb", false},
		{"/home/u/.gem/gems/rake-13/lib/rake.rb", false},
		{"<internal:kernel>", false},
		{"/app/vendor/x.rb", false},
		{"/app/recorder.rb", false},
	}
	for _, tt := range tests {
		if got := f.Tracks(tt.path); got != tt.want {
			t.Errorf("Tracks(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if n := len(f.Ignore); n != len(DefaultIgnore())+1 {
		t.Errorf("duplicate Add changed ignore list length to %d", n)
	}
}
