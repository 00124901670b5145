package query

// Parse turns expanded query text into a syntax tree.
//
// Grammar, in order of increasing precedence: disjunction ('+'), conjunction
// (juxtaposition), negation ('-'), then atoms (tags, metatags, parenthesized
// groups). Metatags use the three-segment form name:mode:value with mode
// "plain" or "regex".
//
// Empty input is malformed; callers that want the empty query to mean
// something decide that before calling Parse.
func Parse(input string) (Expr, error) {
	p := &parser{lex: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokenEOF {
		return nil, p.unexpected()
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	cur token
}

// advance pulls the next token. The parser never looks ahead more than one
// token so the lexer position stays just past cur, which lets metatag values
// be scanned with their own alphabet.
func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) unexpected() error {
	return &SyntaxError{Fragment: p.cur.text, Pos: p.cur.pos}
}

func (p *parser) parseDisjunction() (Expr, error) {
	first, err := p.parseConjunction()
	if err != nil {
		return nil, err
	}
	children := []Expr{first}
	for p.cur.kind == tokenPlus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	return Or(children...), nil
}

func (p *parser) parseConjunction() (Expr, error) {
	first, err := p.parseNegation()
	if err != nil {
		return nil, err
	}
	children := []Expr{first}
	for p.startsAtom() {
		next, err := p.parseNegation()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	return And(children...), nil
}

// startsAtom reports whether cur can begin a negation or atom, i.e. whether
// the conjunction continues.
func (p *parser) startsAtom() bool {
	switch p.cur.kind {
	case tokenIdent, tokenMinus, tokenLParen:
		return true
	}
	return false
}

func (p *parser) parseNegation() (Expr, error) {
	if p.cur.kind == tokenMinus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return Not(child), nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	switch p.cur.kind {
	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseDisjunction()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokenRParen {
			return nil, p.unexpected()
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr, nil

	case tokenIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokenColon {
			return Tag(name), nil
		}
		return p.parseMetatagRest(name)
	}

	return nil, p.unexpected()
}

// parseMetatagRest parses ":mode:value" after the metatag name. cur is the
// first colon on entry.
func (p *parser) parseMetatagRest(name string) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokenIdent {
		return nil, p.unexpected()
	}
	mode := Mode(p.cur.text)
	if mode != ModePlain && mode != ModeRegex {
		return nil, &SyntaxError{Fragment: p.cur.text, Pos: p.cur.pos}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokenColon {
		return nil, p.unexpected()
	}

	// The value alphabet differs from the grammar's, so it is scanned
	// directly off the lexer instead of through advance.
	value, _, err := p.lex.value()
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return Metatag(name, mode, value), nil
}
