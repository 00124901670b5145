package query

import (
	"regexp"
	"sort"
	"strings"
)

// MetatagSpec describes one registry entry: a recognized metatag name and
// the anchored path-matching pattern its base query uses.
type MetatagSpec struct {
	Name string
	// BuildPattern wraps a value pattern (already translated for plain
	// mode) into the anchored regex matched against the image path.
	BuildPattern func(valuePattern string) string
}

// Registry is the closed set of recognized metatags. It is an explicit value
// handed to the compiler rather than process-wide state, so callers control
// its lifecycle.
type Registry struct {
	specs map[string]MetatagSpec
}

// NewRegistry builds a registry from the given specs.
func NewRegistry(specs ...MetatagSpec) *Registry {
	r := &Registry{specs: make(map[string]MetatagSpec, len(specs))}
	for _, s := range specs {
		r.specs[s.Name] = s
	}
	return r
}

// DefaultRegistry returns the built-in metatags:
//
//	ext:  matches the file extension, case-insensitively ("ext:plain:png"
//	      matches photo.png and photo.PNG).
//	name: matches the file name without its extension, case-sensitively.
//
// Image paths are stored with forward slashes, which the patterns rely on.
func DefaultRegistry() *Registry {
	return NewRegistry(
		MetatagSpec{
			Name: "ext",
			BuildPattern: func(p string) string {
				return `(?i)\.` + p + `$`
			},
		},
		MetatagSpec{
			Name: "name",
			BuildPattern: func(p string) string {
				return `/` + p + `\.\w+$`
			},
		},
	)
}

// IsKnown reports registry membership.
func (r *Registry) IsKnown(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Names returns the registered metatag names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateValue checks that value is well formed for the metatag under the
// given mode. Registry membership is checked before the value. In plain mode
// a backslash may only escape '*', '?', or another backslash; in regex mode
// the value must compile.
func (r *Registry) ValidateValue(name string, mode Mode, value string) error {
	if !r.IsKnown(name) {
		return &UnknownMetatagError{Name: name}
	}
	switch mode {
	case ModePlain:
		return validatePlain(name, value)
	case ModeRegex:
		if _, err := regexp.Compile(value); err != nil {
			return &InvalidMetatagValueError{
				Name: name, Mode: mode, Value: value,
				Reason: "not a valid regular expression",
			}
		}
		return nil
	}
	return &InvalidMetatagValueError{
		Name: name, Mode: mode, Value: value,
		Reason: "unknown mode",
	}
}

// pattern builds the anchored path regex for a validated metatag atom. Plain
// values are translated to their glob-equivalent regex first.
func (r *Registry) pattern(name string, mode Mode, value string) (string, error) {
	if err := r.ValidateValue(name, mode, value); err != nil {
		return "", err
	}
	p := value
	if mode == ModePlain {
		p = plainToRegex(value)
	}
	return r.specs[name].BuildPattern(p), nil
}

func validatePlain(name, value string) error {
	runes := []rune(value)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' {
			continue
		}
		if i+1 >= len(runes) || !strings.ContainsRune(`*?\`, runes[i+1]) {
			return &InvalidMetatagValueError{
				Name: name, Mode: ModePlain, Value: value,
				Reason: `backslash must escape '*', '?', or '\'`,
			}
		}
		i++ // skip the escaped rune
	}
	return nil
}

// plainToRegex translates a plain-mode value into a regex fragment:
// unescaped '*' and '?' become wildcards that stop at path separators,
// escaped wildcards become literals, and every other rune is quoted.
func plainToRegex(value string) string {
	var b strings.Builder
	runes := []rune(value)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			b.WriteString(regexp.QuoteMeta(string(runes[i+1])))
			i++
		case r == '*':
			b.WriteString(`[^/]*`)
		case r == '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
