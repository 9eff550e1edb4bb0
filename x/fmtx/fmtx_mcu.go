//go:build rp2040

package fmtx

import (
	"io"
	"strconv"
)

// Tiny formatter subset for MCU builds: %s %q %d %x %X %v %t %% and
// width/precision for %s. It streams into w piece by piece so a Bounded
// destination never sees an intermediate string.

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	p := printer{w: w}
	p.format(format, a)
	return p.n, p.err
}

type printer struct {
	w       io.Writer
	n       int
	err     error
	scratch [24]byte
}

func (p *printer) write(b []byte) {
	if p.err != nil {
		return
	}
	n, err := p.w.Write(b)
	p.n += n
	p.err = err
}

func (p *printer) str(s string) { p.write([]byte(s)) }

func (p *printer) int(v int64, base int, upper bool) {
	p.digits(strconv.AppendInt(p.scratch[:0], v, base), upper)
}

func (p *printer) uint(v uint64, base int, upper bool) {
	p.digits(strconv.AppendUint(p.scratch[:0], v, base), upper)
}

func (p *printer) digits(b []byte, upper bool) {
	if upper {
		for i := range b {
			if 'a' <= b[i] && b[i] <= 'f' {
				b[i] -= 'a' - 'A'
			}
		}
	}
	p.write(b)
}

func (p *printer) any(v any) {
	switch x := v.(type) {
	case string:
		p.str(x)
	case []byte:
		p.write(x)
	case error:
		p.str(x.Error())
	case interface{ String() string }:
		p.str(x.String())
	case bool:
		p.str(strconv.FormatBool(x))
	case float32:
		p.write(strconv.AppendFloat(p.scratch[:0], float64(x), 'f', 3, 32))
	case float64:
		p.write(strconv.AppendFloat(p.scratch[:0], x, 'f', 3, 64))
	default:
		if i, ok := toI64(v); ok {
			p.int(i, 10, false)
			return
		}
		if u, ok := toU64(v); ok {
			p.uint(u, 10, false)
			return
		}
		p.str("<unk>")
	}
}

func (p *printer) format(format string, args []any) {
	ai := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			j := i
			for j < len(format) && format[j] != '%' {
				j++
			}
			p.str(format[i:j])
			i = j
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			p.str("%")
			i += 2
			continue
		}
		i++
		// minimal width/precision: %<w>.<p><verb>
		width, prec, hasPrec := 0, 0, false
		i = parseNum(format, i, &width)
		if i < len(format) && format[i] == '.' {
			i++
			hasPrec = true
			i = parseNum(format, i, &prec)
		}
		if i >= len(format) {
			return
		}
		verb := format[i]
		i++
		if ai >= len(args) {
			p.str("%!")
			p.write([]byte{verb})
			p.str("(MISSING)")
			continue
		}
		arg := args[ai]
		ai++

		switch verb {
		case 's', 'q':
			s, ok := arg.(string)
			if !ok {
				if bs, isBytes := arg.([]byte); isBytes {
					s = string(bs)
				} else {
					p.any(arg)
					continue
				}
			}
			if verb == 'q' {
				s = strconv.Quote(s)
			}
			if hasPrec && prec < len(s) {
				s = s[:prec]
			}
			for pad := width - len(s); pad > 0; pad-- {
				p.str(" ")
			}
			p.str(s)
		case 'd':
			if i, ok := toI64(arg); ok {
				p.int(i, 10, false)
			} else if u, ok := toU64(arg); ok {
				p.uint(u, 10, false)
			} else {
				p.any(arg)
			}
		case 'x', 'X':
			if u, ok := toU64(arg); ok {
				p.uint(u, 16, verb == 'X')
			} else if i, ok := toI64(arg); ok {
				p.int(i, 16, verb == 'X')
			} else {
				p.any(arg)
			}
		case 't':
			b, _ := arg.(bool)
			p.str(strconv.FormatBool(b))
		case 'v':
			p.any(arg)
		default:
			p.write([]byte{'%', verb})
		}
	}
}

func toI64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func toU64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint:
		return uint64(t), true
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case uintptr:
		return uint64(t), true
	}
	return 0, false
}

func parseNum(s string, i int, out *int) int {
	n := 0
	start := i
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i > start {
		*out = n
	}
	return i
}
