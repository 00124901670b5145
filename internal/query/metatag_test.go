package query

import (
	"errors"
	"regexp"
	"testing"
)

func TestDefaultRegistryNames(t *testing.T) {
	reg := DefaultRegistry()
	names := reg.Names()
	if len(names) != 2 || names[0] != "ext" || names[1] != "name" {
		t.Fatalf("names = %v, want [ext name]", names)
	}
	if reg.IsKnown("size") {
		t.Error("size should not be a known metatag")
	}
}

func TestValidateValueUnknownMetatag(t *testing.T) {
	reg := DefaultRegistry()
	err := reg.ValidateValue("size", ModePlain, "big")
	var unknownErr *UnknownMetatagError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("err = %v, want UnknownMetatagError", err)
	}
	if unknownErr.Name != "size" {
		t.Errorf("name = %q, want size", unknownErr.Name)
	}
}

func TestValidatePlainValues(t *testing.T) {
	reg := DefaultRegistry()

	valid := []string{"png", "IMG_*", "pic?", `star\*`, `question\?`, `slash\\`, "a.b-c"}
	for _, v := range valid {
		if err := reg.ValidateValue("ext", ModePlain, v); err != nil {
			t.Errorf("value %q: unexpected error %v", v, err)
		}
	}

	invalid := []string{`\`, `\n`, `a\bc`, `trailing\`}
	for _, v := range invalid {
		err := reg.ValidateValue("ext", ModePlain, v)
		var valueErr *InvalidMetatagValueError
		if !errors.As(err, &valueErr) {
			t.Errorf("value %q: err = %v, want InvalidMetatagValueError", v, err)
		}
	}
}

func TestValidateRegexValues(t *testing.T) {
	reg := DefaultRegistry()

	if err := reg.ValidateValue("name", ModeRegex, `^IMG_\d+$`); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := reg.ValidateValue("name", ModeRegex, `(unclosed`)
	var valueErr *InvalidMetatagValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("err = %v, want InvalidMetatagValueError", err)
	}
	if !IsQueryError(err) {
		t.Error("validation failure not recognized as query error")
	}
}

func TestPlainToRegex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"png", "png"},
		{"IMG_*", `IMG_[^/]*`},
		{"pic?", `pic[^/]`},
		{`star\*`, `star\*`},
		{"a.b", `a\.b`},
		{`back\\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		got := plainToRegex(tt.in)
		if got != tt.want {
			t.Errorf("plainToRegex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Wildcards in plain mode never cross a path separator.
func TestPlainWildcardStopsAtSlash(t *testing.T) {
	re := regexp.MustCompile(plainToRegex("IMG_*") + "$")
	if !re.MatchString("IMG_2024") {
		t.Error("IMG_* should match IMG_2024")
	}
	if re.MatchString("IMG_a/b") {
		t.Error("IMG_* must not match across a path separator")
	}
}

func TestBuiltPatterns(t *testing.T) {
	reg := DefaultRegistry()

	extPattern, err := reg.pattern("ext", ModePlain, "png")
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	extRe := regexp.MustCompile(extPattern)
	for path, want := range map[string]bool{
		"/lib/photo.png":  true,
		"/lib/photo.PNG":  true, // extension matching is case-insensitive
		"/lib/photo.apng": false,
		"/lib/photo.jpg":  false,
		"/lib/png":        false,
	} {
		if got := extRe.MatchString(path); got != want {
			t.Errorf("ext:plain:png against %q = %v, want %v", path, got, want)
		}
	}

	namePattern, err := reg.pattern("name", ModePlain, "IMG_*")
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	nameRe := regexp.MustCompile(namePattern)
	for path, want := range map[string]bool{
		"/lib/IMG_2024.png":  true,
		"/lib/IMG_.jpg":      true,
		"/lib/img_2024.png":  false, // file names match case-sensitively
		"/lib/XIMG_2024.png": false,
		"/lib/IMG_2024":      false,
	} {
		if got := nameRe.MatchString(path); got != want {
			t.Errorf("name:plain:IMG_* against %q = %v, want %v", path, got, want)
		}
	}
}

func TestCustomRegistry(t *testing.T) {
	reg := NewRegistry(MetatagSpec{
		Name:         "dir",
		BuildPattern: func(p string) string { return `/` + p + `/` },
	})
	if !reg.IsKnown("dir") {
		t.Fatal("dir should be known")
	}
	if reg.IsKnown("ext") {
		t.Error("custom registry should not inherit built-ins")
	}
}
