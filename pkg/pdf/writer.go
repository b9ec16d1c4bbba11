package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

// Writer assembles a PDF file from objects. Objects are numbered in the
// order they are added, starting at 1.
type Writer struct {
	objects []Object
}

// NewWriter creates an empty writer
func NewWriter() *Writer {
	return &Writer{}
}

// Add appends an indirect object and returns its reference
func (w *Writer) Add(obj Object) Reference {
	w.objects = append(w.objects, obj)
	return Reference{ObjectNumber: len(w.objects)}
}

// Reserve allocates an object number to be filled in later with Set, for
// objects that refer to each other.
func (w *Writer) Reserve() Reference {
	return w.Add(Null{})
}

// Set replaces the object behind a reference returned by Add or Reserve
func (w *Writer) Set(ref Reference, obj Object) {
	if ref.ObjectNumber < 1 || ref.ObjectNumber > len(w.objects) {
		panic(fmt.Sprintf("pdf: object %d was not allocated", ref.ObjectNumber))
	}
	w.objects[ref.ObjectNumber-1] = obj
}

// AddPages adds a page tree holding pages and a catalog pointing at it.
// Each page dictionary gets its /Type and /Parent. The catalog reference
// is returned.
func (w *Writer) AddPages(pages ...Dictionary) Reference {
	tree := w.Reserve()
	kids := make(Array, 0, len(pages))
	for _, page := range pages {
		page = page.With("Type", Name("Page")).With("Parent", tree)
		kids = append(kids, w.Add(page))
	}
	w.Set(tree, Dictionary{
		"Type":  Name("Pages"),
		"Kids":  kids,
		"Count": Integer(len(pages)),
	})
	return w.Add(Dictionary{"Type": Name("Catalog"), "Pages": tree})
}

// WriteTo writes the file with a classic cross-reference table
func (w *Writer) WriteTo(out io.Writer, root Reference) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(w.objects))
	for i, obj := range w.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(w.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, Dictionary{"Size": Integer(len(w.objects) + 1), "Root": root})
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xref)

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}

// Bytes returns the file as a byte slice
func (w *Writer) Bytes(root Reference) []byte {
	var buf bytes.Buffer
	w.WriteTo(&buf, root)
	return buf.Bytes()
}

// writeObject serializes an object. Dictionary keys are sorted so output
// is stable, and stream lengths are always rewritten.
func writeObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil:
		buf.WriteString("null")
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case Dictionary:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		buf.WriteString("<<")
		for _, k := range keys {
			buf.WriteString(Name(k).String())
			buf.WriteByte(' ')
			writeObject(buf, v[Name(k)])
			buf.WriteByte(' ')
		}
		buf.WriteString(">>")
	case Stream:
		writeObject(buf, v.Dictionary.With("Length", Integer(len(v.Data))))
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString(v.String())
	}
}
