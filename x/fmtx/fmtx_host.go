//go:build !rp2040

package fmtx

import (
	"fmt"
	"io"
)

func Fprintf(w io.Writer, format string, a ...any) (int, error) { return fmt.Fprintf(w, format, a...) }
