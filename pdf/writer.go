package pdf

import (
	"bytes"
	"fmt"
	"sort"
)

// Resource names every page carries. GSHighlight applies the multiply blend
// at 35% opacity used for baked highlights; GSNormal resets to opaque
// painting for strokes and text.
const (
	FontResource     = Name("F1")
	GSHighlight      = Name("GHi")
	GSNormal         = Name("GNorm")
	HighlightOpacity = 0.35
)

// Write serializes doc to PDF 1.7 bytes: header, object bodies, xref table,
// trailer. Output is deterministic for a given document.
func Write(doc *Document) ([]byte, error) {
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("pdf: document has no pages")
	}

	objects := make(map[Ref]Object)
	next := 1
	alloc := func() Ref {
		ref := Ref{Num: next}
		next++
		return ref
	}

	catalogRef := alloc()
	pagesRef := alloc()

	fontRef := alloc()
	objects[fontRef] = Dict{
		"Type":     Name("Font"),
		"Subtype":  Name("Type1"),
		"BaseFont": Name("Helvetica"),
	}

	hiRef := alloc()
	objects[hiRef] = Dict{
		"Type": Name("ExtGState"),
		"BM":   Name("Multiply"),
		"ca":   Number(HighlightOpacity),
		"CA":   Number(HighlightOpacity),
	}
	normRef := alloc()
	objects[normRef] = Dict{
		"Type": Name("ExtGState"),
		"BM":   Name("Normal"),
		"ca":   Number(1),
		"CA":   Number(1),
	}

	kids := make(Array, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		contentRef := alloc()
		objects[contentRef] = &Stream{
			Dict: Dict{"Length": Integer(len(p.Content))},
			Data: p.Content,
		}
		pageRef := alloc()
		objects[pageRef] = Dict{
			"Type":     Name("Page"),
			"Parent":   pagesRef,
			"MediaBox": Array{Number(0), Number(0), Number(p.Width), Number(p.Height)},
			"Resources": Dict{
				"Font":      Dict{FontResource: fontRef},
				"ExtGState": Dict{GSHighlight: hiRef, GSNormal: normRef},
			},
			"Contents": contentRef,
		}
		kids = append(kids, pageRef)
	}

	objects[pagesRef] = Dict{
		"Type":  Name("Pages"),
		"Count": Integer(len(doc.Pages)),
		"Kids":  kids,
	}
	objects[catalogRef] = Dict{
		"Type":  Name("Catalog"),
		"Pages": pagesRef,
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	ordered := make([]Ref, 0, len(objects))
	for ref := range objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	offsets := make(map[int]int64, len(ordered))
	for _, ref := range ordered {
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(serializeIndirect(ref, objects[ref]))
	}

	xrefOffset := buf.Len()
	maxNum := ordered[len(ordered)-1].Num
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root %d 0 R>>\nstartxref\n%d\n%%%%EOF\n", maxNum+1, catalogRef.Num, xrefOffset)

	return buf.Bytes(), nil
}
