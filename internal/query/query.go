package query

// Pipeline bundles the inputs a compilation needs: the compound-tag
// definitions in effect and the metatag registry. Both are snapshots; a
// Pipeline value is immutable and safe to share across goroutines.
type Pipeline struct {
	// Definitions maps compound-tag labels to their defining expressions.
	Definitions map[string]string
	// Registry is the closed set of recognized metatags.
	Registry *Registry
	// MaxExpansionDepth caps macro-expansion passes; zero selects the
	// default.
	MaxExpansionDepth int
}

// Compile runs the full pipeline on raw query text: macro expansion,
// parsing, boolean normalization, and SQL compilation. All failures are
// typed query errors (see IsQueryError); compilation never partially
// succeeds.
func (p Pipeline) Compile(raw string) (*Compiled, error) {
	expr, err := p.ParseNormalized(raw)
	if err != nil {
		return nil, err
	}
	return Compile(expr, p.registry())
}

// ParseNormalized expands and parses raw query text and returns the
// canonical boolean expression, without compiling it. Useful for checking
// that a compound-tag definition is well formed before storing it.
func (p Pipeline) ParseNormalized(raw string) (Expr, error) {
	expanded, err := Expand(raw, p.Definitions, p.MaxExpansionDepth)
	if err != nil {
		return nil, err
	}
	expr, err := Parse(expanded)
	if err != nil {
		return nil, err
	}
	return Normalize(expr), nil
}

func (p Pipeline) registry() *Registry {
	if p.Registry != nil {
		return p.Registry
	}
	return DefaultRegistry()
}
