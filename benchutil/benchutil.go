// Package benchutil times a loop and reports per-op costs in the
// column layout of "go test -bench".
package benchutil

import (
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strings"
	"time"
)

type Metric struct {
	N    float64
	Unit string
}

// Run calls f nOps times and reports ns/op, total(ms), and extra
// metrics under the caller's name.
func Run(nOps int, f func(i int), extra ...*Metric) {
	start := time.Now()
	for i := 0; i < nOps; i++ {
		f(i)
	}
	total := time.Since(start)

	ms := []*Metric{
		{N: float64(total.Nanoseconds()) / float64(nOps), Unit: "ns/op"},
		{N: float64(total.Milliseconds()), Unit: "total(ms)"},
	}
	report(os.Stdout, callerName(1), nOps, append(ms, extra...))
}

func report(w io.Writer, name string, nOps int, ms []*Metric) {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%-*s", 20, name)
	fmt.Fprintf(buf, "\t%8d", nOps)
	for _, m := range ms {
		buf.WriteByte('\t')
		prettyPrint(buf, m.N, m.Unit)
	}
	fmt.Fprintln(w, buf.String())
}

// callerName is the function name skip frames up from its caller.
func callerName(skip int) string {
	pcs := make([]uintptr, 1)
	if runtime.Callers(skip+2, pcs) == 0 {
		return "unknown"
	}
	frame, _ := runtime.CallersFrames(pcs).Next()
	split := strings.Split(frame.Function, ".")
	return split[len(split)-1]
}

// prettyPrint keeps 10 places before the decimal point and four
// significant figures for small values.
func prettyPrint(w io.Writer, x float64, unit string) {
	var format string
	switch y := math.Abs(x); {
	case y == 0 || y >= 999.95:
		format = "%10.0f %s"
	case y >= 99.995:
		format = "%12.1f %s"
	case y >= 9.9995:
		format = "%13.2f %s"
	case y >= 0.99995:
		format = "%14.3f %s"
	case y >= 0.099995:
		format = "%15.4f %s"
	default:
		format = "%18.7f %s"
	}
	fmt.Fprintf(w, format, x, unit)
}
