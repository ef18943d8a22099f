package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed reports bytes that cannot be decoded as a document this
// package understands.
var ErrMalformed = errors.New("pdf: malformed document")

// Read reconstructs a Document from bytes produced by Write: it resolves
// the xref table from startxref, walks catalog -> pages -> kids, and pulls
// each page's MediaBox and content stream.
func Read(data []byte) (*Document, error) {
	xrefOff, err := findStartXref(data)
	if err != nil {
		return nil, err
	}
	offsets, trailer, err := parseXref(data, xrefOff)
	if err != nil {
		return nil, err
	}

	r := &reader{data: data, offsets: offsets, cache: make(map[int]Object)}

	rootRef, ok := trailer["Root"].(Ref)
	if !ok {
		return nil, fmt.Errorf("%w: trailer has no /Root", ErrMalformed)
	}
	catalog, err := r.resolveDict(rootRef)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	pagesRef, ok := catalog["Pages"].(Ref)
	if !ok {
		return nil, fmt.Errorf("%w: catalog has no /Pages", ErrMalformed)
	}
	pages, err := r.resolveDict(pagesRef)
	if err != nil {
		return nil, fmt.Errorf("page tree: %w", err)
	}
	kids, ok := pages["Kids"].(Array)
	if !ok {
		return nil, fmt.Errorf("%w: page tree has no /Kids", ErrMalformed)
	}

	doc := New()
	for i, kid := range kids {
		kidRef, ok := kid.(Ref)
		if !ok {
			return nil, fmt.Errorf("%w: kid %d is not a reference", ErrMalformed, i)
		}
		pageDict, err := r.resolveDict(kidRef)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		w, h, err := mediaBox(r, pageDict)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		page := doc.AddPage(w, h)
		if contents, ok := pageDict["Contents"]; ok {
			stream, err := r.resolveStream(contents)
			if err != nil {
				return nil, fmt.Errorf("page %d contents: %w", i+1, err)
			}
			page.Content = stream.Data
		}
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrMalformed)
	}
	return doc, nil
}

func mediaBox(r *reader, pageDict Dict) (w, h float64, err error) {
	box, ok := pageDict["MediaBox"].(Array)
	if !ok || len(box) != 4 {
		return 0, 0, fmt.Errorf("%w: bad /MediaBox", ErrMalformed)
	}
	vals := make([]float64, 4)
	for i, o := range box {
		switch v := o.(type) {
		case Number:
			vals[i] = float64(v)
		case Integer:
			vals[i] = float64(v)
		default:
			return 0, 0, fmt.Errorf("%w: non-numeric /MediaBox entry", ErrMalformed)
		}
	}
	return vals[2] - vals[0], vals[3] - vals[1], nil
}

func findStartXref(data []byte) (int, error) {
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("%w: startxref not found", ErrMalformed)
	}
	lex := &lexer{data: tail, pos: i + len("startxref")}
	lex.skipSpace()
	n, err := lex.readInt()
	if err != nil || n < 0 || n >= len(data) {
		return 0, fmt.Errorf("%w: bad startxref offset", ErrMalformed)
	}
	return n, nil
}

func parseXref(data []byte, off int) (map[int]int, Dict, error) {
	lex := &lexer{data: data, pos: off}
	lex.skipSpace()
	if !lex.consume("xref") {
		return nil, nil, fmt.Errorf("%w: xref keyword missing", ErrMalformed)
	}
	offsets := make(map[int]int)
	for {
		lex.skipSpace()
		if lex.peekKeyword("trailer") {
			lex.consume("trailer")
			break
		}
		start, err := lex.readInt()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: xref subsection", ErrMalformed)
		}
		lex.skipSpace()
		count, err := lex.readInt()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: xref subsection", ErrMalformed)
		}
		for i := 0; i < count; i++ {
			lex.skipSpace()
			o, err := lex.readInt()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: xref entry", ErrMalformed)
			}
			lex.skipSpace()
			if _, err := lex.readInt(); err != nil {
				return nil, nil, fmt.Errorf("%w: xref entry", ErrMalformed)
			}
			lex.skipSpace()
			kind := lex.readByte()
			if kind == 'n' {
				offsets[start+i] = o
			}
		}
	}
	lex.skipSpace()
	trailer, err := lex.parseObject()
	if err != nil {
		return nil, nil, fmt.Errorf("trailer: %w", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, nil, fmt.Errorf("%w: trailer is not a dictionary", ErrMalformed)
	}
	return offsets, dict, nil
}

type reader struct {
	data    []byte
	offsets map[int]int
	cache   map[int]Object
}

func (r *reader) resolve(o Object) (Object, error) {
	ref, ok := o.(Ref)
	if !ok {
		return o, nil
	}
	if cached, ok := r.cache[ref.Num]; ok {
		return cached, nil
	}
	off, ok := r.offsets[ref.Num]
	if !ok {
		return nil, fmt.Errorf("%w: object %d not in xref", ErrMalformed, ref.Num)
	}
	lex := &lexer{data: r.data, pos: off}
	obj, err := lex.parseIndirect(r)
	if err != nil {
		return nil, err
	}
	r.cache[ref.Num] = obj
	return obj, nil
}

func (r *reader) resolveDict(o Object) (Dict, error) {
	obj, err := r.resolve(o)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("%w: expected dictionary, got %T", ErrMalformed, obj)
	}
	return dict, nil
}

func (r *reader) resolveStream(o Object) (*Stream, error) {
	obj, err := r.resolve(o)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, fmt.Errorf("%w: expected stream, got %T", ErrMalformed, obj)
	}
	return stream, nil
}

type lexer struct {
	data []byte
	pos  int
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0 {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) readByte() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	b := l.data[l.pos]
	l.pos++
	return b
}

func (l *lexer) consume(kw string) bool {
	if l.peekKeyword(kw) {
		l.pos += len(kw)
		return true
	}
	return false
}

func (l *lexer) peekKeyword(kw string) bool {
	return l.pos+len(kw) <= len(l.data) && string(l.data[l.pos:l.pos+len(kw)]) == kw
}

func (l *lexer) readInt() (int, error) {
	start := l.pos
	for l.pos < len(l.data) && (l.data[l.pos] == '-' || l.data[l.pos] == '+' || isDigit(l.data[l.pos])) {
		l.pos++
	}
	if l.pos == start {
		return 0, fmt.Errorf("%w: expected integer at %d", ErrMalformed, start)
	}
	return strconv.Atoi(string(l.data[start:l.pos]))
}

// parseIndirect parses "num gen obj <object> endobj", attaching stream data
// when the body is followed by a stream keyword.
func (l *lexer) parseIndirect(r *reader) (Object, error) {
	l.skipSpace()
	if _, err := l.readInt(); err != nil {
		return nil, err
	}
	l.skipSpace()
	if _, err := l.readInt(); err != nil {
		return nil, err
	}
	l.skipSpace()
	if !l.consume("obj") {
		return nil, fmt.Errorf("%w: obj keyword missing at %d", ErrMalformed, l.pos)
	}
	obj, err := l.parseObject()
	if err != nil {
		return nil, err
	}
	l.skipSpace()
	if l.peekKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("%w: stream without dictionary", ErrMalformed)
		}
		length, err := streamLength(r, dict)
		if err != nil {
			return nil, err
		}
		l.consume("stream")
		if l.pos < len(l.data) && l.data[l.pos] == '\r' {
			l.pos++
		}
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
		if l.pos+length > len(l.data) {
			return nil, fmt.Errorf("%w: stream length out of range", ErrMalformed)
		}
		// Copied: AppendContent grows this slice, and an aliasing subslice
		// would overwrite the input buffer past the stream body.
		data := append([]byte(nil), l.data[l.pos:l.pos+length]...)
		l.pos += length
		l.skipSpace()
		if !l.consume("endstream") {
			return nil, fmt.Errorf("%w: endstream missing", ErrMalformed)
		}
		obj = &Stream{Dict: dict, Data: data}
	}
	l.skipSpace()
	if !l.consume("endobj") {
		return nil, fmt.Errorf("%w: endobj missing", ErrMalformed)
	}
	return obj, nil
}

func streamLength(r *reader, dict Dict) (int, error) {
	raw, ok := dict["Length"]
	if !ok {
		return 0, fmt.Errorf("%w: stream has no /Length", ErrMalformed)
	}
	if r != nil {
		resolved, err := r.resolve(raw)
		if err != nil {
			return 0, err
		}
		raw = resolved
	}
	switch v := raw.(type) {
	case Integer:
		return int(v), nil
	case Number:
		return int(v), nil
	}
	return 0, fmt.Errorf("%w: bad stream /Length", ErrMalformed)
}

func (l *lexer) parseObject() (Object, error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}
	switch c := l.data[l.pos]; {
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		return l.parseDict()
	case c == '[':
		return l.parseArray()
	case c == '/':
		return l.parseName()
	case c == '(':
		return l.parseString()
	case c == 't':
		if l.consume("true") {
			return Boolean(true), nil
		}
	case c == 'f':
		if l.consume("false") {
			return Boolean(false), nil
		}
	case c == 'n':
		if l.consume("null") {
			return Null{}, nil
		}
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.parseNumberOrRef()
	}
	return nil, fmt.Errorf("%w: unexpected byte %q at %d", ErrMalformed, l.data[l.pos], l.pos)
}

func (l *lexer) parseDict() (Object, error) {
	l.pos += 2
	dict := Dict{}
	for {
		l.skipSpace()
		if l.peekKeyword(">>") {
			l.pos += 2
			return dict, nil
		}
		if l.pos >= len(l.data) || l.data[l.pos] != '/' {
			return nil, fmt.Errorf("%w: dictionary key expected at %d", ErrMalformed, l.pos)
		}
		key, err := l.parseName()
		if err != nil {
			return nil, err
		}
		val, err := l.parseObject()
		if err != nil {
			return nil, err
		}
		dict[key.(Name)] = val
	}
}

func (l *lexer) parseArray() (Object, error) {
	l.pos++
	arr := Array{}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("%w: unterminated array", ErrMalformed)
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		o, err := l.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, o)
	}
}

func (l *lexer) parseName() (Object, error) {
	l.pos++
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return Name(l.data[start:l.pos]), nil
}

func (l *lexer) parseString() (Object, error) {
	l.pos++
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return nil, fmt.Errorf("%w: dangling escape in string", ErrMalformed)
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, fmt.Errorf("%w: unterminated string", ErrMalformed)
}

// parseNumberOrRef reads a number and, when it is followed by a second
// integer and an R keyword, folds the three tokens into a Ref.
func (l *lexer) parseNumberOrRef() (Object, error) {
	start := l.pos
	isFloat := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '.' {
			isFloat = true
			l.pos++
			continue
		}
		if isDigit(c) || c == '-' || c == '+' {
			l.pos++
			continue
		}
		break
	}
	tok := string(l.data[start:l.pos])
	if isFloat {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrMalformed, tok)
		}
		return Number(v), nil
	}
	num, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: bad integer %q", ErrMalformed, tok)
	}

	save := l.pos
	l.skipSpace()
	genStart := l.pos
	for l.pos < len(l.data) && isDigit(l.data[l.pos]) {
		l.pos++
	}
	if l.pos > genStart {
		gen, _ := strconv.Atoi(string(l.data[genStart:l.pos]))
		l.skipSpace()
		if l.pos < len(l.data) && l.data[l.pos] == 'R' && (l.pos+1 >= len(l.data) || !isRegular(l.data[l.pos+1])) {
			l.pos++
			return Ref{Num: num, Gen: gen}, nil
		}
	}
	l.pos = save
	return Integer(num), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isRegular(c byte) bool {
	switch c {
	case ' ', '\n', '\r', '\t', '\f', 0, '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}
