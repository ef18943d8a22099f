// Package pdf is the compact PDF backend of the built-in authoring
// collaborator. It models just enough of the format to write annotated
// documents and read back documents it wrote: a typed object set, a
// one-shot writer with an xref table, and a recursive-descent reader.
package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Object is a PDF object value.
type Object interface {
	writeTo(buf *bytes.Buffer)
}

// Name is a PDF name, written with a leading slash.
type Name string

func (n Name) writeTo(buf *bytes.Buffer) {
	buf.WriteByte('/')
	buf.WriteString(string(n))
}

// Number is a PDF numeric value.
type Number float64

func (v Number) writeTo(buf *bytes.Buffer) {
	buf.WriteString(formatNumber(float64(v)))
}

// Integer is a PDF integer.
type Integer int64

func (v Integer) writeTo(buf *bytes.Buffer) {
	buf.WriteString(strconv.FormatInt(int64(v), 10))
}

// String is a literal PDF string.
type String string

func (s String) writeTo(buf *bytes.Buffer) {
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

// Boolean is a PDF boolean.
type Boolean bool

func (b Boolean) writeTo(buf *bytes.Buffer) {
	if b {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
}

// Null is the PDF null object.
type Null struct{}

func (Null) writeTo(buf *bytes.Buffer) { buf.WriteString("null") }

// Ref is an indirect object reference.
type Ref struct {
	Num, Gen int
}

func (r Ref) writeTo(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "%d %d R", r.Num, r.Gen)
}

// Array is an ordered sequence of objects.
type Array []Object

func (a Array) writeTo(buf *bytes.Buffer) {
	buf.WriteByte('[')
	for i, o := range a {
		if i > 0 {
			buf.WriteByte(' ')
		}
		o.writeTo(buf)
	}
	buf.WriteByte(']')
}

// Dict is a PDF dictionary. Keys serialize in sorted order so output is
// deterministic.
type Dict map[Name]Object

func (d Dict) writeTo(buf *bytes.Buffer) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte('/')
		buf.WriteString(k)
		buf.WriteByte(' ')
		d[Name(k)].writeTo(buf)
	}
	buf.WriteString(">>")
}

// Stream is a dictionary with attached data. The writer sets Length.
type Stream struct {
	Dict Dict
	Data []byte
}

func (s *Stream) writeTo(buf *bytes.Buffer) {
	s.Dict.writeTo(buf)
	buf.WriteString("\nstream\n")
	buf.Write(s.Data)
	buf.WriteString("\nendstream")
}

// serializeIndirect renders "num gen obj ... endobj".
func serializeIndirect(ref Ref, obj Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	obj.writeTo(&buf)
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

// formatNumber trims trailing zeros so content streams stay small.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = trimZeros(s)
	return s
}

func trimZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
