package pdf

import (
	"errors"
	"fmt"
	"math"
)

// Function is a PDF function object (types 0, 2, 3 and 4).
type Function interface {
	// Apply evaluates the function. Inputs are clipped to the domain and
	// outputs to the range.
	Apply(inputs ...float64) []float64
	// Outputs returns the number of output values.
	Outputs() int
}

// ParseFunction reads a function dictionary or stream. An array of
// single-output functions is combined into one function whose outputs are
// the concatenation, as used by shadings.
func (d *Document) ParseFunction(obj Object) (Function, error) {
	return d.parseFunction(obj, 0)
}

func (d *Document) parseFunction(obj Object, depth int) (Function, error) {
	if depth > 8 {
		return nil, errors.New("function nesting too deep")
	}
	obj = d.Resolve(obj)

	if arr, ok := obj.(Array); ok {
		fa := functionArray{}
		for _, e := range arr {
			f, err := d.parseFunction(e, depth+1)
			if err != nil {
				return nil, err
			}
			fa = append(fa, f)
		}
		if len(fa) == 0 {
			return nil, errors.New("empty function array")
		}
		return fa, nil
	}

	var dict Dictionary
	var stream Stream
	switch v := obj.(type) {
	case Dictionary:
		dict = v
	case Stream:
		stream = v
		dict = v.Dictionary
	default:
		return nil, fmt.Errorf("function must be a dictionary or stream, got %T", obj)
	}

	ftype, ok := d.FloatOf(dict.Get("FunctionType"))
	if !ok {
		return nil, errors.New("missing FunctionType")
	}
	domain := d.Floats(dict.Get("Domain"))
	rng := d.Floats(dict.Get("Range"))
	if len(domain) < 2 || len(domain)%2 != 0 {
		return nil, errors.New("invalid function Domain")
	}

	switch int(ftype) {
	case 0:
		if stream.Dictionary == nil {
			return nil, errors.New("sampled function must be a stream")
		}
		return d.newSampledFunction(stream, domain, rng)
	case 2:
		f := &exponentialFunction{domain: domain, rng: rng, c0: []float64{0}, c1: []float64{1}, n: 1}
		if c0 := d.Floats(dict.Get("C0")); len(c0) > 0 {
			f.c0 = c0
		}
		if c1 := d.Floats(dict.Get("C1")); len(c1) > 0 {
			f.c1 = c1
		}
		if len(f.c0) != len(f.c1) {
			return nil, errors.New("C0 and C1 differ in length")
		}
		if n, ok := d.FloatOf(dict.Get("N")); ok {
			f.n = n
		}
		return f, nil
	case 3:
		f := &stitchingFunction{domain: domain, rng: rng}
		fns, ok := d.ArrayOf(dict.Get("Functions"))
		if !ok || len(fns) == 0 {
			return nil, errors.New("stitching function without Functions")
		}
		for _, e := range fns {
			sub, err := d.parseFunction(e, depth+1)
			if err != nil {
				return nil, err
			}
			f.functions = append(f.functions, sub)
		}
		f.bounds = d.Floats(dict.Get("Bounds"))
		f.encode = d.Floats(dict.Get("Encode"))
		if len(f.bounds) != len(f.functions)-1 {
			return nil, errors.New("invalid stitching function Bounds")
		}
		if len(f.encode) < 2*len(f.functions) {
			f.encode = make([]float64, 2*len(f.functions))
			for i := range f.functions {
				f.encode[2*i+1] = 1
			}
		}
		return f, nil
	case 4:
		if stream.Dictionary == nil {
			return nil, errors.New("PostScript function must be a stream")
		}
		if len(rng) < 2 {
			return nil, errors.New("PostScript function without Range")
		}
		code, err := stream.Decode()
		if err != nil {
			return nil, err
		}
		prog, err := compilePostScript(code)
		if err != nil {
			return nil, err
		}
		return &postScriptFunction{domain: domain, rng: rng, prog: prog}, nil
	}
	return nil, fmt.Errorf("unsupported function type %d", int(ftype))
}

func clip(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// interpolate maps x from [xmin, xmax] linearly onto [ymin, ymax].
func interpolate(x, xmin, xmax, ymin, ymax float64) float64 {
	if xmax == xmin {
		return ymin
	}
	return ymin + (x-xmin)*(ymax-ymin)/(xmax-xmin)
}

func clipOutputs(out, rng []float64) []float64 {
	for i := range out {
		if 2*i+1 < len(rng) {
			out[i] = clip(out[i], rng[2*i], rng[2*i+1])
		}
	}
	return out
}

func inputAt(inputs []float64, i int) float64 {
	if i < len(inputs) {
		return inputs[i]
	}
	return 0
}

type functionArray []Function

func (fa functionArray) Apply(inputs ...float64) []float64 {
	out := make([]float64, 0, len(fa))
	for _, f := range fa {
		out = append(out, f.Apply(inputs...)...)
	}
	return out
}

func (fa functionArray) Outputs() int {
	n := 0
	for _, f := range fa {
		n += f.Outputs()
	}
	return n
}

// sampledFunction is a type 0 function with multilinear interpolation.
type sampledFunction struct {
	domain, rng    []float64
	size           []int
	bps            int
	encode, decode []float64
	samples        []byte
}

func (d *Document) newSampledFunction(stream Stream, domain, rng []float64) (*sampledFunction, error) {
	m := len(domain) / 2
	n := len(rng) / 2
	if n == 0 {
		return nil, errors.New("sampled function without Range")
	}
	f := &sampledFunction{domain: domain, rng: rng}
	for _, s := range d.Floats(stream.Dictionary.Get("Size")) {
		f.size = append(f.size, int(s))
	}
	if len(f.size) != m {
		return nil, errors.New("invalid sampled function Size")
	}
	for _, s := range f.size {
		if s < 1 {
			return nil, errors.New("invalid sampled function Size")
		}
	}
	bps, _ := d.FloatOf(stream.Dictionary.Get("BitsPerSample"))
	f.bps = int(bps)
	switch f.bps {
	case 1, 2, 4, 8, 12, 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid BitsPerSample %d", f.bps)
	}
	f.encode = d.Floats(stream.Dictionary.Get("Encode"))
	if len(f.encode) != 2*m {
		f.encode = make([]float64, 2*m)
		for i, s := range f.size {
			f.encode[2*i+1] = float64(s - 1)
		}
	}
	f.decode = d.Floats(stream.Dictionary.Get("Decode"))
	if len(f.decode) != 2*n {
		f.decode = rng
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	f.samples = data
	return f, nil
}

func (f *sampledFunction) Outputs() int { return len(f.rng) / 2 }

func (f *sampledFunction) Apply(inputs ...float64) []float64 {
	m := len(f.domain) / 2
	n := f.Outputs()

	floor := make([]int, m)
	frac := make([]float64, m)
	for i := 0; i < m; i++ {
		x := clip(inputAt(inputs, i), f.domain[2*i], f.domain[2*i+1])
		e := interpolate(x, f.domain[2*i], f.domain[2*i+1], f.encode[2*i], f.encode[2*i+1])
		e = clip(e, 0, float64(f.size[i]-1))
		floor[i] = int(math.Floor(e))
		frac[i] = e - float64(floor[i])
		if floor[i] >= f.size[i]-1 {
			floor[i] = f.size[i] - 1
			frac[i] = 0
		}
	}

	out := make([]float64, n)
	corner := make([]int, m)
	for c := 0; c < 1<<m; c++ {
		w := 1.0
		for dim := 0; dim < m; dim++ {
			if c>>dim&1 == 0 {
				corner[dim] = floor[dim]
				w *= 1 - frac[dim]
			} else {
				corner[dim] = floor[dim] + 1
				w *= frac[dim]
			}
		}
		if w == 0 {
			continue
		}
		index := 0
		stride := 1
		for dim := 0; dim < m; dim++ {
			index += min(corner[dim], f.size[dim]-1) * stride
			stride *= f.size[dim]
		}
		for j := 0; j < n; j++ {
			out[j] += w * float64(f.sample((index*n+j)*f.bps))
		}
	}

	maxVal := math.Pow(2, float64(f.bps)) - 1
	for j := range out {
		out[j] = interpolate(out[j], 0, maxVal, f.decode[2*j], f.decode[2*j+1])
	}
	return clipOutputs(out, f.rng)
}

// sample reads a big-endian value of f.bps bits at the given bit offset.
func (f *sampledFunction) sample(bit int) uint32 {
	var v uint32
	for i := 0; i < f.bps; i++ {
		byteIdx := (bit + i) / 8
		if byteIdx >= len(f.samples) {
			return 0
		}
		v = v<<1 | uint32(f.samples[byteIdx]>>(7-uint((bit+i)%8))&1)
	}
	return v
}

// exponentialFunction is a type 2 function: C0 + x^N (C1 - C0).
type exponentialFunction struct {
	domain, rng []float64
	c0, c1      []float64
	n           float64
}

func (f *exponentialFunction) Outputs() int { return len(f.c0) }

func (f *exponentialFunction) Apply(inputs ...float64) []float64 {
	x := clip(inputAt(inputs, 0), f.domain[0], f.domain[1])
	xn := math.Pow(x, f.n)
	out := make([]float64, len(f.c0))
	for i := range out {
		out[i] = f.c0[i] + xn*(f.c1[i]-f.c0[i])
	}
	return clipOutputs(out, f.rng)
}

// stitchingFunction is a type 3 function.
type stitchingFunction struct {
	domain, rng []float64
	functions   []Function
	bounds      []float64
	encode      []float64
}

func (f *stitchingFunction) Outputs() int { return f.functions[0].Outputs() }

func (f *stitchingFunction) Apply(inputs ...float64) []float64 {
	x := clip(inputAt(inputs, 0), f.domain[0], f.domain[1])

	k := len(f.functions)
	i := 0
	for i < k-1 && x >= f.bounds[i] {
		i++
	}
	// Domain[0] == Bounds[0] puts that single point in the first subdomain
	if x == f.domain[0] && f.bounds[0] == f.domain[0] {
		i = 0
	}

	lo, hi := f.domain[0], f.domain[1]
	if i > 0 {
		lo = f.bounds[i-1]
	}
	if i < k-1 {
		hi = f.bounds[i]
	}
	e := interpolate(x, lo, hi, f.encode[2*i], f.encode[2*i+1])
	return clipOutputs(f.functions[i].Apply(e), f.rng)
}

// postScriptFunction is a type 4 calculator function.
type postScriptFunction struct {
	domain, rng []float64
	prog        []psOp
}

func (f *postScriptFunction) Outputs() int { return len(f.rng) / 2 }

func (f *postScriptFunction) Apply(inputs ...float64) []float64 {
	m := len(f.domain) / 2
	st := &psStack{}
	for i := 0; i < m; i++ {
		st.push(clip(inputAt(inputs, i), f.domain[2*i], f.domain[2*i+1]))
	}

	n := f.Outputs()
	out := make([]float64, n)
	if err := st.exec(f.prog); err != nil {
		return clipOutputs(out, f.rng)
	}
	// results are the top n values, bottom first
	vals := st.vals
	if len(vals) >= n {
		copy(out, vals[len(vals)-n:])
	} else {
		copy(out[n-len(vals):], vals)
	}
	return clipOutputs(out, f.rng)
}

// psOp is one compiled calculator instruction. Blocks of if and ifelse are
// stored inline.
type psOp struct {
	op        string
	val       float64
	then, alt []psOp
}

func compilePostScript(code []byte) ([]psOp, error) {
	lex := NewLexerFromBytes(code)
	tok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || tok.Value.(string) != "{" {
		return nil, errors.New("PostScript function must start with '{'")
	}
	return compileBlock(lex, 0)
}

func compileBlock(lex *Lexer, depth int) ([]psOp, error) {
	if depth > 100 {
		return nil, errors.New("PostScript blocks nested too deep")
	}
	var ops []psOp
	var pending [][]psOp
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenEOF:
			return nil, errors.New("unterminated PostScript block")
		case TokenInteger:
			ops = append(ops, psOp{op: "num", val: float64(tok.Value.(int64))})
			continue
		case TokenReal:
			ops = append(ops, psOp{op: "num", val: tok.Value.(float64)})
			continue
		case TokenBoolean:
			v := 0.0
			if tok.Value.(bool) {
				v = 1
			}
			ops = append(ops, psOp{op: "bool", val: v})
			continue
		case TokenKeyword:
		default:
			return nil, fmt.Errorf("unexpected token in PostScript function at %d", tok.Pos)
		}

		word := tok.Value.(string)
		switch word {
		case "{":
			block, err := compileBlock(lex, depth+1)
			if err != nil {
				return nil, err
			}
			pending = append(pending, block)
			continue
		case "}":
			if len(pending) > 0 {
				return nil, errors.New("PostScript block without if")
			}
			return ops, nil
		case "if":
			if len(pending) != 1 {
				return nil, errors.New("if needs one block")
			}
			ops = append(ops, psOp{op: "if", then: pending[0]})
		case "ifelse":
			if len(pending) != 2 {
				return nil, errors.New("ifelse needs two blocks")
			}
			ops = append(ops, psOp{op: "ifelse", then: pending[0], alt: pending[1]})
		default:
			if _, ok := psOperators[word]; !ok {
				return nil, fmt.Errorf("unknown PostScript operator %q", word)
			}
			ops = append(ops, psOp{op: word})
		}
		pending = nil
	}
}

type psStack struct {
	vals []float64
}

var errStack = errors.New("PostScript stack error")

func (s *psStack) push(v float64) { s.vals = append(s.vals, v) }

func (s *psStack) pop() (float64, error) {
	if len(s.vals) == 0 {
		return 0, errStack
	}
	v := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return v, nil
}

func (s *psStack) exec(prog []psOp) error {
	for _, op := range prog {
		if len(s.vals) > 1000 {
			return errStack
		}
		switch op.op {
		case "num", "bool":
			s.push(op.val)
		case "if":
			c, err := s.pop()
			if err != nil {
				return err
			}
			if c != 0 {
				if err := s.exec(op.then); err != nil {
					return err
				}
			}
		case "ifelse":
			c, err := s.pop()
			if err != nil {
				return err
			}
			branch := op.alt
			if c != 0 {
				branch = op.then
			}
			if err := s.exec(branch); err != nil {
				return err
			}
		default:
			if err := psOperators[op.op](s); err != nil {
				return err
			}
		}
	}
	return nil
}

func psUnary(fn func(float64) float64) func(*psStack) error {
	return func(s *psStack) error {
		a, err := s.pop()
		if err != nil {
			return err
		}
		s.push(fn(a))
		return nil
	}
}

func psBinary(fn func(a, b float64) float64) func(*psStack) error {
	return func(s *psStack) error {
		b, err := s.pop()
		if err != nil {
			return err
		}
		a, err := s.pop()
		if err != nil {
			return err
		}
		s.push(fn(a, b))
		return nil
	}
}

func psBool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func psDegrees(r float64) float64 {
	d := r * 180 / math.Pi
	if d < 0 {
		d += 360
	}
	return d
}

// psOperators holds everything except if and ifelse. Booleans are 1 and 0;
// not, and, or and xor act bitwise on integers.
var psOperators map[string]func(*psStack) error

func init() {
	psOperators = map[string]func(*psStack) error{
		"abs":      psUnary(math.Abs),
		"neg":      psUnary(func(a float64) float64 { return -a }),
		"ceiling":  psUnary(math.Ceil),
		"floor":    psUnary(math.Floor),
		"round":    psUnary(func(a float64) float64 { return math.Floor(a + 0.5) }),
		"truncate": psUnary(math.Trunc),
		"cvi":      psUnary(math.Trunc),
		"cvr":      psUnary(func(a float64) float64 { return a }),
		"sqrt":     psUnary(func(a float64) float64 { return math.Sqrt(math.Max(a, 0)) }),
		"sin":      psUnary(func(a float64) float64 { return math.Sin(a * math.Pi / 180) }),
		"cos":      psUnary(func(a float64) float64 { return math.Cos(a * math.Pi / 180) }),
		"ln":       psUnary(math.Log),
		"log":      psUnary(math.Log10),
		"not": psUnary(func(a float64) float64 {
			if a == 0 || a == 1 {
				return 1 - a
			}
			return float64(^int64(a))
		}),
		"add": psBinary(func(a, b float64) float64 { return a + b }),
		"sub": psBinary(func(a, b float64) float64 { return a - b }),
		"mul": psBinary(func(a, b float64) float64 { return a * b }),
		"div": psBinary(func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		}),
		"idiv": psBinary(func(a, b float64) float64 {
			if int64(b) == 0 {
				return 0
			}
			return float64(int64(a) / int64(b))
		}),
		"mod": psBinary(func(a, b float64) float64 {
			if int64(b) == 0 {
				return 0
			}
			return float64(int64(a) % int64(b))
		}),
		"exp":   psBinary(math.Pow),
		"atan":  psBinary(func(a, b float64) float64 { return psDegrees(math.Atan2(a, b)) }),
		"and":   psBinary(func(a, b float64) float64 { return float64(int64(a) & int64(b)) }),
		"or":    psBinary(func(a, b float64) float64 { return float64(int64(a) | int64(b)) }),
		"xor":   psBinary(func(a, b float64) float64 { return float64(int64(a) ^ int64(b)) }),
		"eq":    psBinary(func(a, b float64) float64 { return psBool(a == b) }),
		"ne":    psBinary(func(a, b float64) float64 { return psBool(a != b) }),
		"gt":    psBinary(func(a, b float64) float64 { return psBool(a > b) }),
		"ge":    psBinary(func(a, b float64) float64 { return psBool(a >= b) }),
		"lt":    psBinary(func(a, b float64) float64 { return psBool(a < b) }),
		"le":    psBinary(func(a, b float64) float64 { return psBool(a <= b) }),
		"bitshift": psBinary(func(a, b float64) float64 {
			if b >= 0 {
				return float64(int64(a) << uint(b))
			}
			return float64(int64(a) >> uint(-b))
		}),
		"true":  func(s *psStack) error { s.push(1); return nil },
		"false": func(s *psStack) error { s.push(0); return nil },
		"pop": func(s *psStack) error {
			_, err := s.pop()
			return err
		},
		"dup": func(s *psStack) error {
			if len(s.vals) == 0 {
				return errStack
			}
			s.push(s.vals[len(s.vals)-1])
			return nil
		},
		"exch": func(s *psStack) error {
			n := len(s.vals)
			if n < 2 {
				return errStack
			}
			s.vals[n-1], s.vals[n-2] = s.vals[n-2], s.vals[n-1]
			return nil
		},
		"copy": func(s *psStack) error {
			c, err := s.pop()
			if err != nil {
				return err
			}
			k := int(c)
			if k < 0 || k > len(s.vals) {
				return errStack
			}
			s.vals = append(s.vals, s.vals[len(s.vals)-k:]...)
			return nil
		},
		"index": func(s *psStack) error {
			c, err := s.pop()
			if err != nil {
				return err
			}
			k := int(c)
			if k < 0 || k >= len(s.vals) {
				return errStack
			}
			s.push(s.vals[len(s.vals)-1-k])
			return nil
		},
		"roll": func(s *psStack) error {
			jv, err := s.pop()
			if err != nil {
				return err
			}
			nv, err := s.pop()
			if err != nil {
				return err
			}
			n, j := int(nv), int(jv)
			if n < 0 || n > len(s.vals) {
				return errStack
			}
			if n == 0 {
				return nil
			}
			part := s.vals[len(s.vals)-n:]
			j = ((j % n) + n) % n
			rolled := append(append([]float64{}, part[n-j:]...), part[:n-j]...)
			copy(part, rolled)
			return nil
		},
	}
}
