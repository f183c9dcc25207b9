package parse

import (
	"slices"
	"strings"

	"github.com/phobologic/codemap/internal/model"
)

type shape int

const (
	shapeUse shape = iota
	shapeForward
	shapeDefinition
)

// typeShape classifies the type introducer at token i as a definition
// ("struct A {"), a forward declaration ("struct A;") or a use of the type
// inside some other declaration ("struct A *make(void);").
func (p *cparser) typeShape(i int) shape {
	j := i + 1
	if p.toks[i].Text == "enum" && j < len(p.toks) && (p.toks[j].Text == "class" || p.toks[j].Text == "struct") {
		j++
	}
	names := 0
	colon := false
	for ; j < len(p.toks); j++ {
		t := p.toks[j]
		switch {
		case t.Text == "{":
			return shapeDefinition
		case t.Text == ";":
			if !colon && names == 1 {
				return shapeForward
			}
			return shapeUse
		case t.Text == ":":
			colon = true
		case t.Text == "final":
		case t.Text == "::":
			if !colon {
				names--
			}
		case t.Kind == model.TokenIdent:
			if !colon {
				names++
			}
		case colon && (t.Text == "," || t.Text == "<" || t.Text == ">" || t.Text == ">>" || t.Kind == model.TokenKeyword):
		default:
			return shapeUse
		}
	}
	return shapeUse
}

type typeOpts struct {
	// typedef suppresses trailing declarators, which name the alias.
	typedef bool
	// name overrides the tag, for typedefs of anonymous aggregates.
	name  string
	start *model.Token
}

// parseType parses an aggregate definition or forward declaration starting
// at its introducer keyword.
func (p *cparser) parseType(parent model.NodeID, o typeOpts) (model.NodeID, bool) {
	mods, pstart := p.takePending()
	intro := p.advance()
	start := intro
	if pstart != nil {
		start = *pstart
	}
	if o.start != nil {
		start = *o.start
	}
	if intro.Text == "enum" && (p.check("class") || p.check("struct")) {
		p.advance()
	}

	var name string
	for p.peek().Kind == model.TokenIdent && p.peek().Text != "final" {
		name = p.advance().Text
		if !p.g.Qualified || !p.match("::") {
			break
		}
	}
	p.match("final")

	var bases []string
	if p.check(":") {
		p.advance()
		if intro.Text == "enum" {
			for !p.atEnd() && !p.check("{") && !p.check(";") {
				p.advance()
			}
		} else {
			bases = p.parseBases()
		}
	}
	tag := name
	if o.name != "" {
		name = o.name
	}

	if p.check(";") {
		semi := p.advance()
		if name == "" {
			return model.NoParent, false
		}
		return p.tree.Add(parent, model.Node{
			Kind:      model.TypeDecl,
			Name:      name,
			Span:      model.Span{Start: start.Span.Start, End: semi.Span.End},
			Signature: intro.Text + " " + name,
			Modifiers: append(mods, intro.Text, model.ModForward),
		}), true
	}
	if !p.check("{") {
		p.errorf(intro.Span, "expected '{' after %s", intro.Text)
		p.skipStatement()
		return model.NoParent, false
	}

	open := p.peek()
	sig := p.text(start, p.toks[p.pos-1])
	if tag == "" && o.name != "" {
		sig += " " + o.name
	}
	if name == "" {
		name = anonymous
	}
	node := model.Node{
		Kind:      model.TypeDecl,
		Name:      name,
		Span:      model.Span{Start: start.Span.Start, End: open.Span.End},
		Signature: sig,
		Modifiers: append(mods, intro.Text),
		Defined:   true,
	}
	for _, b := range bases {
		node.Relations = append(node.Relations, model.Relation{Kind: p.baseKind(parent, b), Target: b})
	}
	id := p.tree.Add(parent, node)
	p.advance()

	var closed bool
	if intro.Text == "enum" {
		closed = p.parseEnumBody(id, open)
	} else {
		closed = p.parseScope(id, scopeClass, name, open)
	}
	end := p.toks[p.pos-1]
	if !closed {
		p.finish(id, end)
		return id, true
	}
	for _, c := range p.tree.Children(id) {
		if n := p.tree.Node(c); n.Kind == model.MethodDecl && n.HasModifier(model.ModAbstract) {
			p.tree.AddModifier(id, model.ModAbstract)
			break
		}
	}

	declStart := p.pos
	for !p.atEnd() && !p.check(";") && !p.check("}") && !p.isSync(p.pos) {
		if p.pos == declStart && p.lineFirst[p.pos] && p.peek().Kind == model.TokenKeyword {
			break
		}
		if p.check("{") {
			p.skipBlock(model.NoParent)
			continue
		}
		p.advance()
	}
	decl := p.toks[declStart:p.pos]
	if p.check(";") {
		end = p.advance()
	} else {
		p.errorf(end.Span, "expected ';' after %s definition", intro.Text)
	}
	p.finish(id, end)

	if !o.typedef {
		for _, d := range splitTopLevel(decl, ",") {
			if nameTok, _, ok := declaratorName(d); ok {
				p.tree.Add(parent, model.Node{
					Kind:      model.VariableDecl,
					Name:      nameTok.Text,
					Span:      model.Span{Start: d[0].Span.Start, End: d[len(d)-1].Span.End},
					Signature: intro.Text + " " + name + " " + p.text(d[0], nameTok),
					Defined:   true,
				})
			}
		}
	}
	return id, true
}

// parseBases reads a base-specifier list up to the class body.
func (p *cparser) parseBases() []string {
	var bases []string
	for !p.atEnd() && !p.check("{") && !p.check(";") && !p.isSync(p.pos) {
		t := p.peek()
		switch {
		case t.Kind == model.TokenIdent || t.Text == "::":
			if name := p.qualifiedName(); name != "" {
				bases = append(bases, name)
			}
		default:
			p.advance()
		}
	}
	return bases
}

// qualifiedName reads A::B::C, skipping template arguments.
func (p *cparser) qualifiedName() string {
	var parts []string
	p.match("::")
	for p.peek().Kind == model.TokenIdent {
		parts = append(parts, p.advance().Text)
		if p.check("<") {
			p.skipAngles()
		}
		if !p.match("::") {
			break
		}
	}
	return strings.Join(parts, "::")
}

func (p *cparser) skipAngles() {
	depth := 0
	for !p.atEnd() {
		switch p.advance().Text {
		case "<":
			depth++
		case ">":
			depth--
		case ">>":
			depth -= 2
		case "{", ";":
			p.pos--
			return
		}
		if depth <= 0 {
			return
		}
	}
}

// baseKind distinguishes an interface-like base (abstract in this file)
// from an ordinary one.
func (p *cparser) baseKind(scope model.NodeID, base string) model.RelationKind {
	if id, ok := p.resolve(scope, base); ok && p.tree.Node(id).HasModifier(model.ModAbstract) {
		return model.Implements
	}
	return model.Extends
}

// resolve looks a possibly qualified name up from scope outward.
func (p *cparser) resolve(scope model.NodeID, name string) (model.NodeID, bool) {
	segs := strings.Split(name, "::")
	for s := scope; ; s = p.tree.Node(s).Parent {
		if id, ok := p.descend(s, segs); ok {
			return id, true
		}
		if s == model.NoParent {
			return model.NoParent, false
		}
	}
}

func (p *cparser) descend(from model.NodeID, segs []string) (model.NodeID, bool) {
	cur := from
	for _, seg := range segs {
		id, ok := p.tree.Find(cur, seg)
		if !ok {
			return model.NoParent, false
		}
		cur = id
	}
	return cur, cur != model.NoParent
}

// qualifierScope returns the scope named by the qualifier of an
// out-of-line definition, creating undefined placeholder types for any
// part that has not been seen.
func (p *cparser) qualifierScope(parent model.NodeID, qual []string) model.NodeID {
	if id, ok := p.resolve(parent, strings.Join(qual, "::")); ok {
		return id
	}
	cur := parent
	for _, seg := range qual {
		if id, ok := p.tree.Find(cur, seg); ok {
			cur = id
			continue
		}
		cur = p.tree.Add(cur, model.Node{Kind: model.TypeDecl, Name: seg})
	}
	return cur
}

// parseEnumBody records enumerators after the opening brace.
func (p *cparser) parseEnumBody(id model.NodeID, open model.Token) bool {
	for !p.atEnd() {
		tok := p.peek()
		switch {
		case tok.Text == "}":
			p.advance()
			return true
		case tok.Text == ";" || p.isSync(p.pos):
			p.errorf(open.Span, "missing '}' for block opened here")
			return false
		case tok.Kind == model.TokenIdent:
			p.advance()
			last := tok
			depth := 0
		value:
			for !p.atEnd() {
				switch p.peek().Text {
				case "(", "[", "{":
					depth++
				case ")", "]":
					depth--
				case "}":
					if depth == 0 {
						break value
					}
					depth--
				case ",":
					if depth == 0 {
						break value
					}
				case ";":
					break value
				}
				last = p.advance()
			}
			p.tree.Add(id, model.Node{
				Kind:      model.VariableDecl,
				Name:      tok.Text,
				Span:      model.Span{Start: tok.Span.Start, End: last.Span.End},
				Signature: p.text(tok, last),
				Defined:   true,
			})
			p.match(",")
		default:
			p.advance()
		}
	}
	p.errorf(open.Span, "missing '}' for block opened here")
	return false
}

func (p *cparser) parseTypedef(parent model.NodeID) {
	_, pstart := p.takePending()
	start := p.advance()
	if pstart != nil {
		start = *pstart
	}

	if p.g.TypeIntroducers[p.peek().Text] && p.typeShape(p.pos) == shapeDefinition {
		intro := p.peek().Text
		alias, tag := p.typedefNames(p.pos)
		if tag == "" || tag == alias || alias == "" {
			p.parseType(parent, typeOpts{typedef: true, name: alias, start: &start})
			return
		}
		if _, ok := p.parseType(parent, typeOpts{typedef: true, start: &start}); !ok {
			return
		}
		p.tree.Add(parent, model.Node{
			Kind:      model.TypeDecl,
			Name:      alias,
			Span:      model.Span{Start: start.Span.Start, End: p.toks[p.pos-1].Span.End},
			Signature: start.Text + " " + intro + " " + tag + " " + alias,
			Relations: []model.Relation{{Kind: model.Aliases, Target: tag}},
			Modifiers: []string{start.Text},
			Defined:   true,
		})
		return
	}

	segStart := p.pos
	for !p.atEnd() && !p.check(";") && !p.check("}") && !(p.pos > segStart && p.isSync(p.pos)) {
		if p.check("{") {
			p.skipBlock(model.NoParent)
			continue
		}
		p.advance()
	}
	seg := p.toks[segStart:p.pos]
	if !p.check(";") || len(seg) == 0 {
		p.errorf(start.Span, "unterminated %s", start.Text)
		return
	}
	semi := p.advance()

	nameTok, idx, ok := declaratorName(seg)
	if !ok {
		p.errorf(model.Span{Start: start.Span.Start, End: semi.Span.End}, "%s declares no name", start.Text)
		return
	}
	node := model.Node{
		Kind:      model.TypeDecl,
		Name:      nameTok.Text,
		Span:      model.Span{Start: start.Span.Start, End: semi.Span.End},
		Signature: p.text(start, seg[len(seg)-1]),
		Modifiers: []string{start.Text},
		Defined:   true,
	}
	switch target := aliasTarget(seg, idx); target {
	case "":
	case nameTok.Text:
		// typedef struct T T; names the tag, which may be defined later.
		node.Defined = false
		node.Modifiers = append(node.Modifiers, model.ModForward)
	default:
		node.Relations = []model.Relation{{Kind: model.Aliases, Target: target}}
	}
	p.tree.Add(parent, node)
}

// typedefNames pre-scans "typedef struct tag { ... } alias;" starting at the
// introducer.
func (p *cparser) typedefNames(i int) (alias, tag string) {
	j := i + 1
	if j < len(p.toks) && (p.toks[j].Text == "class" || p.toks[j].Text == "struct") && p.toks[i].Text == "enum" {
		j++
	}
	if j < len(p.toks) && p.toks[j].Kind == model.TokenIdent {
		tag = p.toks[j].Text
	}
	for j < len(p.toks) && p.toks[j].Text != "{" {
		j++
	}
	k := p.matchBrace(j) + 1
	end := k
	for end < len(p.toks) && p.toks[end].Text != ";" && !p.isSync(end) {
		end++
	}
	if decls := splitTopLevel(p.toks[k:end], ","); len(decls) > 0 {
		if tok, _, ok := declaratorName(decls[0]); ok {
			alias = tok.Text
		}
	}
	return alias, tag
}

// matchBrace returns the index of the brace closing the one at i.
func (p *cparser) matchBrace(i int) int {
	depth := 0
	for j := i; j < len(p.toks); j++ {
		switch p.toks[j].Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(p.toks) - 1
}

// collect finds the end of the declaration starting at the cursor without
// moving it. term is ";" or "{" for a terminated declaration and "" when
// recovery stopped at a closing brace, a synchronizing keyword or EOF.
func (p *cparser) collect() (end int, term string) {
	paren, angle := 0, 0
	assigned := false
	for i := p.pos; i < len(p.toks); i++ {
		t := p.toks[i]
		// Inside parentheses only a keyword in column 1 resynchronizes;
		// indented ones are usually wrapped parameters.
		if i > p.pos && p.isSync(i) && (paren == 0 || t.Span.Start.Column == 1) {
			return i, ""
		}
		switch t.Text {
		case "(", "[":
			paren++
		case ")", "]":
			if paren > 0 {
				paren--
			}
		case "<":
			if !assigned && paren == 0 && i > p.pos && p.toks[i-1].Kind == model.TokenIdent {
				angle++
			}
		case ">":
			if angle > 0 {
				angle--
			}
		case ">>":
			angle = max(angle-2, 0)
		case "=":
			if paren == 0 && angle == 0 {
				assigned = true
			}
		case ";":
			if paren == 0 {
				return i, ";"
			}
		case "{":
			if paren == 0 && angle == 0 && !assigned {
				return i, "{"
			}
			i = p.matchBrace(i)
		case "}":
			return i, ""
		}
	}
	return len(p.toks), ""
}

func (p *cparser) parseDeclaration(parent model.NodeID, kind scopeKind, className string) {
	mods, pstart := p.takePending()
	from := p.pos
	end, term := p.collect()
	seg := p.toks[from:end]

	if len(seg) == 0 {
		if term == "{" {
			p.errorf(p.peek().Span, "unexpected block")
			p.skipBlock(model.NoParent)
			return
		}
		p.pos = end + 1
		return
	}
	if term == "" {
		p.unrecognized(seg)
		p.pos = end
		return
	}

	if fn, ok := p.funcShape(seg, kind, className, term); ok {
		p.addFunction(parent, kind, seg, fn, mods, pstart, end, term)
		return
	}
	p.addVariables(parent, seg, mods, end, term)
}

func (p *cparser) unrecognized(seg []model.Token) {
	text := p.text(seg[0], seg[len(seg)-1])
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	p.errorf(model.Span{Start: seg[0].Span.Start, End: seg[len(seg)-1].Span.End}, "unrecognized declaration %q", text)
}

type funcInfo struct {
	name      string
	qual      []string
	nameStart int
	paren     int
}

// funcShape recognizes "ret name(params)" in seg.
func (p *cparser) funcShape(seg []model.Token, kind scopeKind, className, term string) (funcInfo, bool) {
	paren, angle, depth := -1, 0, 0
scan:
	for j, t := range seg {
		switch t.Text {
		case "=":
			if depth == 0 && angle == 0 {
				break scan
			}
		case "<":
			if j > 0 && seg[j-1].Kind == model.TokenIdent {
				angle++
			}
		case ">":
			if angle > 0 {
				angle--
			}
		case ">>":
			angle = max(angle-2, 0)
		case "[":
			depth++
		case "]":
			depth--
		case "(":
			if depth == 0 && angle == 0 {
				paren = j
				break scan
			}
		}
	}
	if paren < 0 {
		return funcInfo{}, false
	}
	if paren+1 < len(seg) && slices.Contains([]string{"*", "&", "^"}, seg[paren+1].Text) {
		// pointer to function: a variable
		return funcInfo{}, false
	}

	fn := funcInfo{paren: paren}
	if op := slices.IndexFunc(seg[:paren], func(t model.Token) bool { return t.Text == "operator" }); op >= 0 {
		var b strings.Builder
		b.WriteString("operator")
		for _, t := range seg[op+1 : paren] {
			b.WriteString(t.Text)
		}
		if op+1 == paren && paren+2 < len(seg) && seg[paren+1].Text == ")" && seg[paren+2].Text == "(" {
			b.WriteString("()")
			fn.paren = paren + 2
		}
		fn.name = b.String()
		fn.nameStart = op
	} else {
		at := paren - 1
		if at < 0 || seg[at].Kind != model.TokenIdent {
			return funcInfo{}, false
		}
		fn.name = seg[at].Text
		fn.nameStart = at
		if at > 0 && seg[at-1].Text == "~" {
			fn.name = "~" + fn.name
			fn.nameStart--
		}
	}
	for p.g.Qualified && fn.nameStart >= 2 && seg[fn.nameStart-1].Text == "::" && seg[fn.nameStart-2].Kind == model.TokenIdent {
		fn.qual = append([]string{seg[fn.nameStart-2].Text}, fn.qual...)
		fn.nameStart -= 2
	}

	switch {
	case fn.nameStart > 0, len(fn.qual) > 0, term == "{":
		return fn, true
	case kind == scopeClass && (fn.name == className || fn.name == "~"+className):
		return fn, true
	}
	return funcInfo{}, false
}

func (p *cparser) addFunction(parent model.NodeID, kind scopeKind, seg []model.Token, fn funcInfo, mods []string, pstart *model.Token, end int, term string) {
	closing := matchParen(seg, fn.paren)
	sigEnd := closing
	pure := false
trailer:
	for k := closing + 1; k < len(seg); k++ {
		switch seg[k].Text {
		case "=":
			pure = k+1 < len(seg) && seg[k+1].Text == "0"
			break trailer
		case ":":
			break trailer
		}
		sigEnd = k
	}

	for _, t := range seg[:fn.nameStart] {
		if p.g.Modifiers[t.Text] {
			mods = append(mods, t.Text)
		}
	}
	if pure {
		mods = append(mods, model.ModAbstract)
	}

	declKind := model.FunctionDecl
	owner := parent
	if kind == scopeClass {
		declKind = model.MethodDecl
	}
	if len(fn.qual) > 0 {
		owner = p.qualifierScope(parent, fn.qual)
		if p.tree.Node(owner).Kind != model.ModuleDecl {
			declKind = model.MethodDecl
		}
	}

	start := seg[0].Span.Start
	if pstart != nil {
		start = pstart.Span.Start
	}
	node := model.Node{
		Kind:      declKind,
		Name:      fn.name,
		Span:      model.Span{Start: start, End: seg[len(seg)-1].Span.End},
		Signature: p.text(seg[0], seg[sigEnd]),
		Modifiers: dedupe(mods),
		Defined:   term == "{",
	}

	if term == ";" {
		node.Span.End = p.toks[end].Span.End
		p.pos = end + 1
		p.tree.Add(owner, node)
		return
	}
	p.pos = end
	id := p.tree.Add(owner, node)
	p.finish(id, p.skipBlock(id))
}

func (p *cparser) addVariables(parent model.NodeID, seg []model.Token, mods []string, end int, term string) {
	p.pos = end
	last := seg[len(seg)-1]
	if term == "{" {
		if _, idx, ok := declaratorName(seg); !ok || idx == 0 {
			p.unrecognized(seg)
			p.skipBlock(model.NoParent)
			p.match(";")
			return
		}
		last = p.skipBlock(model.NoParent)
	}
	if p.check(";") {
		last = p.advance()
	}

	decls := splitTopLevel(seg, ",")
	if len(decls) == 0 {
		p.unrecognized(seg)
		return
	}
	first := decls[0]
	nameTok, idx, ok := declaratorName(first)
	if !ok || idx == 0 {
		p.unrecognized(seg)
		return
	}

	defined := true
	for _, t := range first[:idx] {
		if p.g.Modifiers[t.Text] {
			mods = append(mods, t.Text)
		}
		if t.Text == "extern" {
			defined = false
		}
	}
	mods = dedupe(mods)

	typeEnd := slices.IndexFunc(first, func(t model.Token) bool {
		return t.Text == "*" || t.Text == "&" || t.Text == "&&" || t.Text == "(" || t == nameTok
	})
	prefix := ""
	if typeEnd > 0 {
		prefix = p.text(first[0], first[typeEnd-1]) + " "
	}

	for i, d := range decls {
		tok, _, ok := declaratorName(d)
		if !ok {
			continue
		}
		span := model.Span{Start: d[0].Span.Start, End: d[len(d)-1].Span.End}
		sig := p.text(d[0], tok)
		if i == 0 {
			sig = p.text(first[0], nameTok)
		} else {
			sig = prefix + sig
		}
		if i == len(decls)-1 {
			span.End = last.Span.End
		}
		p.tree.Add(parent, model.Node{
			Kind:      model.VariableDecl,
			Name:      tok.Text,
			Span:      span,
			Signature: sig,
			Modifiers: slices.Clone(mods),
			Defined:   defined,
		})
	}
}

// declaratorName finds the declared name in one declarator and its index:
// the name inside "(*name)", else the last identifier outside brackets
// before any initializer or bit-field width.
func declaratorName(toks []model.Token) (model.Token, int, bool) {
	depth := 0
	cut := len(toks)
	for i, t := range toks {
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "=", ":":
			if depth == 0 && cut == len(toks) {
				cut = i
			}
		}
	}
	toks = toks[:cut]

	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Text != "(" || !slices.Contains([]string{"*", "&", "^"}, toks[i+1].Text) {
			continue
		}
		for k := i + 2; k < len(toks) && toks[k].Text != ")"; k++ {
			if toks[k].Kind == model.TokenIdent {
				return toks[k], k, true
			}
		}
	}

	depth = 0
	idx := -1
	for i, t := range toks {
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		if depth == 0 && t.Kind == model.TokenIdent {
			idx = i
		}
	}
	if idx < 0 {
		return model.Token{}, -1, false
	}
	return toks[idx], idx, true
}

// aliasTarget names the type a typedef aliases when it is a single named
// type; builtin types yield "".
func aliasTarget(seg []model.Token, nameIdx int) string {
	var names, cur []string
	flush := func() {
		if len(cur) > 0 {
			names = append(names, strings.Join(cur, "::"))
			cur = nil
		}
	}
	depth := 0
	for i, t := range seg {
		switch t.Text {
		case "<", "(", "[":
			depth++
			flush()
			continue
		case ">", ")", "]":
			depth--
			continue
		}
		if depth > 0 || i == nameIdx {
			flush()
			continue
		}
		switch {
		case t.Kind == model.TokenIdent:
			if i == 0 || seg[i-1].Text != "::" {
				flush()
			}
			cur = append(cur, t.Text)
		case t.Text == "::":
		default:
			flush()
		}
	}
	flush()
	if len(names) != 1 {
		return ""
	}
	return names[0]
}

// splitTopLevel splits toks at sep outside brackets and template arguments.
func splitTopLevel(toks []model.Token, sep string) [][]model.Token {
	var out [][]model.Token
	depth, angle := 0, 0
	assigned := false
	start := 0
	for i, t := range toks {
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "<":
			if !assigned && i > 0 && toks[i-1].Kind == model.TokenIdent {
				angle++
			}
		case ">":
			if angle > 0 {
				angle--
			}
		case "=":
			assigned = true
		case sep:
			if depth == 0 && angle == 0 {
				if i > start {
					out = append(out, toks[start:i])
				}
				start = i + 1
				assigned = false
			}
		}
	}
	if start < len(toks) {
		out = append(out, toks[start:])
	}
	return out
}

func matchParen(seg []model.Token, open int) int {
	depth := 0
	for i := open; i < len(seg); i++ {
		switch seg[i].Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(seg) - 1
}

func dedupe(mods []string) []string {
	var out []string
	for _, m := range mods {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}
