package bonsai

import (
	"runtime"
	"strconv"
	"strings"
)

// Origin identifies where a log event was produced.
type Origin struct {
	File     string
	Function string
	Line     int
}

// FileName returns the final path element of File.
//
// Both '/' and '\' are treated as separators. A path without separators is
// returned as-is, and an empty path yields an empty string.
func (o Origin) FileName() string {
	if i := strings.LastIndexAny(o.File, `/\`); i >= 0 {
		return o.File[i+1:]
	}
	return o.File
}

// FunctionName returns Function without its package path.
//
// "github.com/x/y/pkg.(*T).Method" becomes "(*T).Method".
func (o Origin) FunctionName() string {
	name := o.Function
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// String renders the origin as "file:line".
func (o Origin) String() string {
	return o.FileName() + ":" + strconv.Itoa(o.Line)
}

// IsZero reports whether no origin information is present.
func (o Origin) IsZero() bool {
	return o.File == "" && o.Function == "" && o.Line == 0
}

// Caller captures the origin of the calling function.
//
// skip is the number of stack frames to ascend, with 0 identifying the
// caller of Caller. When the runtime cannot resolve the frame a zero Origin
// is returned.
func Caller(skip int) Origin {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Origin{}
	}

	o := Origin{File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		o.Function = fn.Name()
	}
	return o
}
