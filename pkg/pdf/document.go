package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
)

// Document represents a PDF document
type Document struct {
	data    []byte
	Version string
	Trailer Dictionary
	Root    Dictionary
	Info    Dictionary
	Pages   []*Page

	// Repaired is set when the cross-reference data was rebuilt by scanning
	// the file for objects.
	Repaired bool

	mu         sync.Mutex
	objects    map[int]Object
	objStreams map[int]*objectStream
	xref       map[int]xrefEntry

	security   *SecurityHandler
	encryptNum int
	locked     bool
}

// xrefEntry represents an entry in the cross-reference table
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	// For compressed objects
	StreamObjNum int
	Index        int
}

type objectStream struct {
	data    []byte
	first   int64
	offsets []int64
}

// Page represents a PDF page with its inherited attributes resolved.
type Page struct {
	doc        *Document
	Dictionary Dictionary
	Number     int
	MediaBox   Rectangle
	CropBox    Rectangle
	Resources  Dictionary
	Rotate     int
}

// Rectangle represents a PDF rectangle
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// defaultMediaBox is US Letter, used when a page tree carries no MediaBox.
var defaultMediaBox = Rectangle{0, 0, 612, 792}

// Open opens a PDF file
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewDocument(data)
}

// NewReader reads a whole PDF from r.
func NewReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(data)
}

// NewDocument creates a new document from PDF data. An encrypted document
// that does not open with the empty password is returned together with
// ErrEncrypted; call Decrypt to unlock it.
func NewDocument(data []byte) (*Document, error) {
	doc := &Document{
		data:       data,
		objects:    make(map[int]Object),
		objStreams: make(map[int]*objectStream),
		xref:       make(map[int]xrefEntry),
	}

	if err := doc.parse(); err != nil {
		if errors.Is(err, ErrEncrypted) {
			return doc, err
		}
		return nil, err
	}

	return doc, nil
}

// parse parses the PDF document
func (d *Document) parse() error {
	head := d.data
	if len(head) > 1024 {
		head = head[:1024]
	}
	start := bytes.Index(head, []byte("%PDF-"))
	if start < 0 {
		return fmt.Errorf("not a PDF file")
	}
	// junk before the header shifts every offset
	d.data = d.data[start:]

	if idx := bytes.IndexAny(d.data, "\r\n"); idx > 5 {
		d.Version = string(bytes.TrimSpace(d.data[5:idx]))
	}

	if err := d.loadXRef(); err != nil || d.Trailer.Get("Root") == nil {
		if rerr := d.repair(); rerr != nil {
			if err != nil {
				return fmt.Errorf("%w (repair failed: %v)", err, rerr)
			}
			return rerr
		}
	}

	if enc := d.Trailer.Get("Encrypt"); enc != nil {
		if err := d.setupSecurity(enc); err != nil {
			return err
		}
		if !d.security.Authenticate("") {
			d.locked = true
			return ErrEncrypted
		}
	}

	return d.loadCatalog()
}

func (d *Document) loadXRef() error {
	startxref, err := d.findStartXRef()
	if err != nil {
		return err
	}
	return d.parseXRef(startxref, make(map[int64]bool))
}

func (d *Document) loadCatalog() error {
	root, ok := d.DictOf(d.Trailer.Get("Root"))
	if !ok && !d.Repaired {
		// a trailer pointing at garbage; rebuild and try once more
		if err := d.repair(); err != nil {
			return err
		}
		root, ok = d.DictOf(d.Trailer.Get("Root"))
	}
	if !ok {
		return fmt.Errorf("Root is not a dictionary")
	}
	d.Root = root

	if info, ok := d.DictOf(d.Trailer.Get("Info")); ok {
		d.Info = info
	}

	return d.parsePages()
}

func (d *Document) setupSecurity(enc Object) error {
	if ref, ok := enc.(Reference); ok {
		d.encryptNum = ref.ObjectNumber
	}
	// loaded before any handler exists, so its strings stay raw
	dict, ok := d.DictOf(enc)
	if !ok {
		return fmt.Errorf("Encrypt is not a dictionary")
	}
	var id []byte
	if ids, ok := d.ArrayOf(d.Trailer.Get("ID")); ok && len(ids) > 0 {
		if s, ok := d.Resolve(ids[0]).(String); ok {
			id = s.Value
		}
	}
	sh, err := newSecurityHandler(dict, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	d.security = sh
	return nil
}

// Decrypt unlocks an encrypted document with a user or owner password.
func (d *Document) Decrypt(password string) error {
	if d.security == nil {
		return nil
	}
	if !d.security.Authenticate(password) {
		return ErrInvalidPassword
	}
	d.mu.Lock()
	d.objects = make(map[int]Object)
	d.objStreams = make(map[int]*objectStream)
	d.mu.Unlock()
	d.locked = false
	d.Pages = nil
	return d.loadCatalog()
}

// IsEncrypted reports whether the document uses a security handler.
func (d *Document) IsEncrypted() bool {
	return d.security != nil
}

// Locked reports whether the document still needs a password.
func (d *Document) Locked() bool {
	return d.locked
}

// findStartXRef finds the startxref position
func (d *Document) findStartXRef() (int64, error) {
	searchLen := 2048
	if len(d.data) < searchLen {
		searchLen = len(d.data)
	}

	tail := d.data[len(d.data)-searchLen:]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}

	start := idx + len("startxref")
	for start < len(tail) && isWhitespace(tail[start]) {
		start++
	}
	end := start
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}

	offset, err := strconv.ParseInt(string(tail[start:end]), 10, 64)
	if err != nil || offset <= 0 || offset >= int64(len(d.data)) {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return offset, nil
}

// parseXRef parses the cross-reference section at offset and every section
// chained through /Prev and /XRefStm.
func (d *Document) parseXRef(offset int64, seen map[int64]bool) error {
	if seen[offset] {
		return nil
	}
	seen[offset] = true

	pos := offset
	for pos < int64(len(d.data)) && isWhitespace(d.data[pos]) {
		pos++
	}

	if bytes.HasPrefix(d.data[pos:], []byte("xref")) {
		return d.parseXRefTable(pos, seen)
	}
	return d.parseXRefStream(pos, seen)
}

// parseXRefTable parses a traditional xref table
func (d *Document) parseXRefTable(offset int64, seen map[int64]bool) error {
	lexer := NewLexerFromBytes(d.data)
	lexer.SeekTo(offset)
	lexer.ReadLine()

	trailerPos := int64(-1)
	for !lexer.eof() {
		lineStart := lexer.Position()
		raw, _ := lexer.ReadLine()
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		if idx := bytes.Index(raw, []byte("trailer")); idx >= 0 {
			trailerPos = lineStart + int64(idx+len("trailer"))
			break
		}

		parts := bytes.Fields(line)
		if len(parts) != 2 {
			continue
		}
		start, err1 := strconv.Atoi(string(parts[0]))
		count, err2 := strconv.Atoi(string(parts[1]))
		if err1 != nil || err2 != nil || count < 0 {
			continue
		}

		for i := 0; i < count; i++ {
			entryLine, _ := lexer.ReadLine()
			fields := bytes.Fields(entryLine)
			if len(fields) < 3 {
				continue
			}
			entryOffset, _ := strconv.ParseInt(string(fields[0]), 10, 64)
			gen, _ := strconv.Atoi(string(fields[1]))

			objNum := start + i
			if _, exists := d.xref[objNum]; !exists {
				d.xref[objNum] = xrefEntry{
					Offset:     entryOffset,
					Generation: gen,
					InUse:      fields[2][0] == 'n',
				}
			}
		}
	}
	if trailerPos < 0 {
		return fmt.Errorf("xref table without trailer")
	}

	parser := NewParserFromBytes(d.data)
	parser.SeekTo(trailerPos)
	trailerObj, err := parser.ParseObject()
	if err != nil {
		return err
	}
	trailer, ok := trailerObj.(Dictionary)
	if !ok {
		return fmt.Errorf("trailer is not a dictionary")
	}
	d.mergeTrailer(trailer)

	// hybrid files keep compressed objects in a side stream
	if stm, ok := trailer.GetInt("XRefStm"); ok {
		_ = d.parseXRef(stm, seen)
	}
	if prev, ok := trailer.GetInt("Prev"); ok {
		return d.parseXRef(prev, seen)
	}
	return nil
}

func (d *Document) mergeTrailer(trailer Dictionary) {
	if d.Trailer == nil {
		d.Trailer = trailer.Clone()
		return
	}
	for k, v := range trailer {
		if _, exists := d.Trailer[k]; !exists {
			d.Trailer[k] = v
		}
	}
}

// parseXRefStream parses an xref stream
func (d *Document) parseXRefStream(offset int64, seen map[int64]bool) error {
	parser := NewParserFromBytes(d.data)
	parser.SeekTo(offset)

	_, _, obj, err := parser.ParseIndirectObject()
	if err != nil {
		return err
	}
	stream, ok := obj.(Stream)
	if !ok {
		return fmt.Errorf("xref stream expected at offset %d", offset)
	}

	data, err := stream.Decode()
	if err != nil {
		return err
	}

	wArray, ok := stream.Dictionary.GetArray("W")
	if !ok || len(wArray) != 3 {
		return fmt.Errorf("invalid xref stream W array")
	}
	w := make([]int, 3)
	for i, obj := range wArray {
		if n, ok := obj.(Integer); ok && n >= 0 && n <= 8 {
			w[i] = int(n)
		}
	}

	var indices []int
	if indexArray, ok := stream.Dictionary.GetArray("Index"); ok {
		for _, obj := range indexArray {
			if n, ok := obj.(Integer); ok {
				indices = append(indices, int(n))
			}
		}
	} else if size, ok := stream.Dictionary.GetInt("Size"); ok {
		indices = []int{0, int(size)}
	}

	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return fmt.Errorf("invalid xref stream W array")
	}
	pos := 0
	for i := 0; i+1 < len(indices); i += 2 {
		start, count := indices[i], indices[i+1]
		for j := 0; j < count && pos+entrySize <= len(data); j++ {
			entry := data[pos : pos+entrySize]
			pos += entrySize

			entryType := readXRefField(entry, 0, w[0])
			if w[0] == 0 {
				entryType = 1
			}
			field2 := readXRefField(entry, w[0], w[1])
			field3 := readXRefField(entry, w[0]+w[1], w[2])

			objNum := start + j
			if _, exists := d.xref[objNum]; exists {
				continue
			}
			switch entryType {
			case 0:
				d.xref[objNum] = xrefEntry{InUse: false}
			case 1:
				d.xref[objNum] = xrefEntry{Offset: int64(field2), Generation: field3, InUse: true}
			case 2:
				d.xref[objNum] = xrefEntry{StreamObjNum: field2, Index: field3, InUse: true}
			}
		}
	}

	d.mergeTrailer(stream.Dictionary)

	if prev, ok := stream.Dictionary.GetInt("Prev"); ok {
		return d.parseXRef(prev, seen)
	}
	return nil
}

// readXRefField reads a big-endian field from an xref stream entry
func readXRefField(data []byte, offset, width int) int {
	result := 0
	for i := 0; i < width; i++ {
		result = result<<8 | int(data[offset+i])
	}
	return result
}

var objHeader = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)

// repair rebuilds the cross-reference data by scanning the whole file for
// "n g obj" headers. Later definitions win, as in an incremental update.
func (d *Document) repair() error {
	d.xref = make(map[int]xrefEntry)
	d.mu.Lock()
	d.objects = make(map[int]Object)
	d.objStreams = make(map[int]*objectStream)
	d.mu.Unlock()
	d.Repaired = true

	for _, m := range objHeader.FindAllSubmatchIndex(d.data, -1) {
		if m[0] > 0 && !isWhitespace(d.data[m[0]-1]) && !isDelimiter(d.data[m[0]-1]) {
			continue
		}
		num, err1 := strconv.Atoi(string(d.data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(d.data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		d.xref[num] = xrefEntry{Offset: int64(m[0]), Generation: gen, InUse: true}
	}
	if len(d.xref) == 0 {
		return fmt.Errorf("no objects found")
	}

	trailer := make(Dictionary)
	if idx := bytes.LastIndex(d.data, []byte("trailer")); idx >= 0 {
		parser := NewParserFromBytes(d.data)
		parser.SeekTo(int64(idx + len("trailer")))
		if obj, err := parser.ParseObject(); err == nil {
			if dict, ok := obj.(Dictionary); ok {
				trailer = dict
			}
		}
	}

	// objects inside object streams are invisible to the scan; pull in the
	// xref streams' entries and trailer keys
	for num := range d.xref {
		stream, ok := d.Resolve(Reference{ObjectNumber: num}).(Stream)
		if !ok {
			continue
		}
		if t, _ := stream.Dictionary.GetName("Type"); t != "XRef" {
			continue
		}
		for _, key := range []Name{"Root", "Info", "Encrypt", "ID"} {
			if _, exists := trailer[key]; !exists && stream.Dictionary[key] != nil {
				trailer[key] = stream.Dictionary[key]
			}
		}
	}
	d.indexObjectStreams()

	if trailer.Get("Root") == nil {
		if root, ok := d.findCatalog(); ok {
			trailer[Name("Root")] = root
		}
	}
	if trailer.Get("Root") == nil {
		return fmt.Errorf("document catalog not found")
	}
	d.Trailer = trailer
	return nil
}

// indexObjectStreams adds the objects of every object stream found by the
// repair scan, without overriding directly stored objects.
func (d *Document) indexObjectStreams() {
	nums := make([]int, 0, len(d.xref))
	for num := range d.xref {
		nums = append(nums, num)
	}
	for _, num := range nums {
		ostm, err := d.loadObjectStream(num)
		if err != nil {
			continue
		}
		header := NewParserFromBytes(ostm.data[:ostm.first])
		for i := range ostm.offsets {
			obj, err := header.ParseObject()
			if err != nil {
				break
			}
			header.ParseObject()
			n, ok := obj.(Integer)
			if !ok {
				continue
			}
			if _, exists := d.xref[int(n)]; !exists {
				d.xref[int(n)] = xrefEntry{StreamObjNum: num, Index: i, InUse: true}
			}
		}
	}
}

func (d *Document) findCatalog() (Reference, bool) {
	for num := range d.xref {
		ref := Reference{ObjectNumber: num}
		if dict, ok := d.DictOf(ref); ok {
			if t, _ := dict.GetName("Type"); t == "Catalog" && dict.Get("Pages") != nil {
				return ref, true
			}
		}
	}
	return Reference{}, false
}

// ResolveObject resolves an object, following references
func (d *Document) ResolveObject(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = d.GetObject(ref.ObjectNumber)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain too deep")
}

// Resolve follows references and returns Null for anything unresolvable.
func (d *Document) Resolve(obj Object) Object {
	out, err := d.ResolveObject(obj)
	if err != nil || out == nil {
		return Null{}
	}
	return out
}

// DictOf resolves obj to a dictionary.
func (d *Document) DictOf(obj Object) (Dictionary, bool) {
	dict, ok := d.Resolve(obj).(Dictionary)
	return dict, ok
}

// StreamOf resolves obj to a stream.
func (d *Document) StreamOf(obj Object) (Stream, bool) {
	s, ok := d.Resolve(obj).(Stream)
	return s, ok
}

// ArrayOf resolves obj to an array.
func (d *Document) ArrayOf(obj Object) (Array, bool) {
	a, ok := d.Resolve(obj).(Array)
	return a, ok
}

// FloatOf resolves obj to a number.
func (d *Document) FloatOf(obj Object) (float64, bool) {
	return ToFloat(d.Resolve(obj))
}

// NameOf resolves obj to a name.
func (d *Document) NameOf(obj Object) (Name, bool) {
	n, ok := d.Resolve(obj).(Name)
	return n, ok
}

// Floats resolves obj to an array and returns its numbers, resolving
// indirect elements.
func (d *Document) Floats(obj Object) []float64 {
	arr, ok := d.ArrayOf(obj)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, e := range arr {
		if v, ok := d.FloatOf(e); ok {
			out = append(out, v)
		}
	}
	return out
}

// Resource looks up a named entry in a category of a resource dictionary,
// e.g. Resource(res, "Font", "F1").
func (d *Document) Resource(res Dictionary, category, name Name) (Object, bool) {
	cat, ok := d.DictOf(res[category])
	if !ok {
		return nil, false
	}
	obj := d.Resolve(cat[name])
	if _, isNull := obj.(Null); isNull {
		return nil, false
	}
	return obj, true
}

// GetObject gets an object by number. It is safe for concurrent use.
func (d *Document) GetObject(objNum int) (Object, error) {
	d.mu.Lock()
	if obj, ok := d.objects[objNum]; ok {
		d.mu.Unlock()
		return obj, nil
	}
	entry, ok := d.xref[objNum]
	d.mu.Unlock()

	if !ok || !entry.InUse {
		return Null{}, nil
	}

	var obj Object
	var err error
	if entry.StreamObjNum > 0 {
		obj, err = d.getCompressedObject(entry.StreamObjNum, entry.Index)
	} else {
		obj, err = d.getUncompressedObject(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.objects[objNum] = obj
	d.mu.Unlock()
	return obj, nil
}

// getUncompressedObject reads an uncompressed object
func (d *Document) getUncompressedObject(objNum int, offset int64) (Object, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("object %d offset %d out of range", objNum, offset)
	}
	parser := NewParserFromBytes(d.data)
	parser.lengthOf = d.lengthOf
	parser.SeekTo(offset)
	num, gen, obj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if num != objNum {
		return nil, fmt.Errorf("object %d not found at offset %d", objNum, offset)
	}
	if d.security != nil && d.security.key != nil && objNum != d.encryptNum {
		obj = d.security.decryptObject(obj, num, gen)
	}
	return obj, nil
}

func (d *Document) lengthOf(ref Reference) (int64, bool) {
	obj, err := d.GetObject(ref.ObjectNumber)
	if err != nil {
		return 0, false
	}
	n, ok := obj.(Integer)
	return int64(n), ok
}

func (d *Document) loadObjectStream(streamObjNum int) (*objectStream, error) {
	d.mu.Lock()
	cached, ok := d.objStreams[streamObjNum]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}

	stream, ok := d.StreamOf(Reference{ObjectNumber: streamObjNum})
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", streamObjNum)
	}
	if t, _ := stream.Dictionary.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("object %d is not an object stream", streamObjNum)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	first, ok := stream.Dictionary.GetInt("First")
	if !ok || first < 0 || first > int64(len(data)) {
		return nil, fmt.Errorf("object stream %d has invalid First", streamObjNum)
	}
	n, _ := stream.Dictionary.GetInt("N")

	ostm := &objectStream{data: data, first: first}
	header := NewParserFromBytes(data[:first])
	for i := int64(0); i < n; i++ {
		if _, err := header.ParseObject(); err != nil {
			break
		}
		offsetObj, err := header.ParseObject()
		if err != nil {
			break
		}
		offset, _ := offsetObj.(Integer)
		ostm.offsets = append(ostm.offsets, int64(offset))
	}

	d.mu.Lock()
	d.objStreams[streamObjNum] = ostm
	d.mu.Unlock()
	return ostm, nil
}

// getCompressedObject reads a compressed object from an object stream
func (d *Document) getCompressedObject(streamObjNum, index int) (Object, error) {
	ostm, err := d.loadObjectStream(streamObjNum)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(ostm.offsets) {
		return nil, fmt.Errorf("object index %d out of range", index)
	}
	objOffset := ostm.first + ostm.offsets[index]
	if objOffset >= int64(len(ostm.data)) {
		return nil, fmt.Errorf("object index %d has invalid offset", index)
	}
	return NewParserFromBytes(ostm.data[objOffset:]).ParseObject()
}

// inherited holds the page attributes that flow down the page tree.
type inherited struct {
	resources Object
	mediaBox  Object
	cropBox   Object
	rotate    Object
}

// parsePages walks the page tree
func (d *Document) parsePages() error {
	pages, ok := d.DictOf(d.Root.Get("Pages"))
	if !ok {
		return fmt.Errorf("missing Pages in catalog")
	}
	visited := make(map[int]bool)
	if ref, ok := d.Root.Get("Pages").(Reference); ok {
		visited[ref.ObjectNumber] = true
	}
	d.parsePagesNode(pages, inherited{}, visited)
	if len(d.Pages) == 0 {
		return fmt.Errorf("document has no pages")
	}
	return nil
}

// parsePagesNode recursively parses page tree nodes. visited guards against
// Kids cycles in damaged files.
func (d *Document) parsePagesNode(node Dictionary, inh inherited, visited map[int]bool) {
	if v := node.Get("Resources"); v != nil {
		inh.resources = v
	}
	if v := node.Get("MediaBox"); v != nil {
		inh.mediaBox = v
	}
	if v := node.Get("CropBox"); v != nil {
		inh.cropBox = v
	}
	if v := node.Get("Rotate"); v != nil {
		inh.rotate = v
	}

	nodeType, _ := node.GetName("Type")
	kids, hasKids := d.ArrayOf(node.Get("Kids"))
	if nodeType == "Page" || (!hasKids && nodeType != "Pages") {
		d.Pages = append(d.Pages, d.newPage(node, inh))
		return
	}

	for _, kidRef := range kids {
		if ref, ok := kidRef.(Reference); ok {
			if visited[ref.ObjectNumber] {
				continue
			}
			visited[ref.ObjectNumber] = true
		}
		kid, ok := d.DictOf(kidRef)
		if !ok {
			continue
		}
		d.parsePagesNode(kid, inh, visited)
	}
}

func (d *Document) newPage(node Dictionary, inh inherited) *Page {
	page := &Page{
		doc:        d,
		Dictionary: node,
		Number:     len(d.Pages) + 1,
		MediaBox:   defaultMediaBox,
	}
	if res, ok := d.DictOf(inh.resources); ok {
		page.Resources = res
	} else {
		page.Resources = Dictionary{}
	}
	if r, ok := d.rectangle(inh.mediaBox); ok {
		page.MediaBox = r
	}
	page.CropBox = page.MediaBox
	if r, ok := d.rectangle(inh.cropBox); ok {
		page.CropBox = r
	}
	if rot, ok := d.FloatOf(inh.rotate); ok {
		page.Rotate = ((int(rot)/90)*90%360 + 360) % 360
	}
	return page
}

// rectangle resolves a four-number array into a normalised rectangle.
func (d *Document) rectangle(obj Object) (Rectangle, bool) {
	vals := d.Floats(obj)
	if len(vals) != 4 {
		return Rectangle{}, false
	}
	return NewRectangle(vals[0], vals[1], vals[2], vals[3]), true
}

// NewRectangle returns a rectangle with LL below and left of UR.
func NewRectangle(x0, y0, x1, y1 float64) Rectangle {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rectangle{LLX: x0, LLY: y0, URX: x1, URY: y1}
}

// RectangleFromArray converts a PDF array to a Rectangle
func RectangleFromArray(arr Array) (Rectangle, bool) {
	vals := arr.Floats()
	if len(vals) != 4 {
		return Rectangle{}, false
	}
	return NewRectangle(vals[0], vals[1], vals[2], vals[3]), true
}

// Array converts the rectangle to a PDF array.
func (r Rectangle) Array() Array {
	return NewRealArray(r.LLX, r.LLY, r.URX, r.URY)
}

// Width returns the rectangle width
func (r Rectangle) Width() float64 {
	return r.URX - r.LLX
}

// Height returns the rectangle height
func (r Rectangle) Height() float64 {
	return r.URY - r.LLY
}

// Empty reports whether the rectangle has no area.
func (r Rectangle) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Intersect returns the overlap of two rectangles and whether they overlap.
func (r Rectangle) Intersect(o Rectangle) (Rectangle, bool) {
	out := Rectangle{
		LLX: max(r.LLX, o.LLX),
		LLY: max(r.LLY, o.LLY),
		URX: min(r.URX, o.URX),
		URY: min(r.URY, o.URY),
	}
	if out.Empty() {
		return Rectangle{}, false
	}
	return out, true
}

// NumPages returns the number of pages
func (d *Document) NumPages() int {
	return len(d.Pages)
}

// GetPage returns a page by number (1-indexed)
func (d *Document) GetPage(num int) (*Page, error) {
	if d.locked {
		return nil, ErrEncrypted
	}
	if num < 1 || num > len(d.Pages) {
		return nil, fmt.Errorf("page %d out of range", num)
	}
	return d.Pages[num-1], nil
}

// Document returns the document the page belongs to.
func (p *Page) Document() *Document {
	return p.doc
}

// GetContents returns the page contents as decoded bytes. Multiple content
// streams are joined with a newline so tokens never merge across them.
func (p *Page) GetContents() ([]byte, error) {
	contentsObj := p.doc.Resolve(p.Dictionary.Get("Contents"))

	switch contents := contentsObj.(type) {
	case Null:
		return nil, nil
	case Stream:
		return contents.Decode()
	case Array:
		var buf bytes.Buffer
		var firstErr error
		for _, ref := range contents {
			stream, ok := p.doc.StreamOf(ref)
			if !ok {
				continue
			}
			data, err := stream.Decode()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), firstErr
	}

	return nil, fmt.Errorf("invalid Contents type %T", contentsObj)
}

// Annotations returns the page's annotation dictionaries in drawing order.
func (p *Page) Annotations() []*Annotation {
	arr, ok := p.doc.ArrayOf(p.Dictionary.Get("Annots"))
	if !ok {
		return nil
	}
	out := make([]*Annotation, 0, len(arr))
	for _, a := range arr {
		if dict, ok := p.doc.DictOf(a); ok {
			out = append(out, newAnnotation(p.doc, dict))
		}
	}
	return out
}

// Width returns the page width
func (p *Page) Width() float64 {
	return p.MediaBox.Width()
}

// Height returns the page height
func (p *Page) Height() float64 {
	return p.MediaBox.Height()
}

// GetMediaBox returns the page media box
func (p *Page) GetMediaBox() Rectangle {
	return p.MediaBox
}

// GetCropBox returns the page crop box
func (p *Page) GetCropBox() Rectangle {
	return p.CropBox
}

func (p *Page) boxOr(key string, fallback Rectangle) Rectangle {
	if r, ok := p.doc.rectangle(p.Dictionary.Get(key)); ok {
		return r
	}
	return fallback
}

// GetBleedBox returns the page bleed box
func (p *Page) GetBleedBox() Rectangle {
	return p.boxOr("BleedBox", p.CropBox)
}

// GetTrimBox returns the page trim box
func (p *Page) GetTrimBox() Rectangle {
	return p.boxOr("TrimBox", p.CropBox)
}

// GetArtBox returns the page art box
func (p *Page) GetArtBox() Rectangle {
	return p.boxOr("ArtBox", p.CropBox)
}

// GetRotation returns the page rotation in degrees, normalised to 0-270.
func (p *Page) GetRotation() int {
	return p.Rotate
}

// Close releases the document's data
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = nil
	d.objects = nil
	d.objStreams = nil
	d.xref = nil
	return nil
}
