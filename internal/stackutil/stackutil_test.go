package stackutil

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStack(t *testing.T) {
	a := assert.New(t)

	frames := GetStack(10, 0)
	if a.NotEmpty(frames) {
		a.True(strings.HasSuffix(frames[0].Function, "stackutil.TestGetStack"), frames[0].Function)
	}

	a.LessOrEqual(len(GetStack(3, 0)), 3)
}

func TestFormatStackFrame(t *testing.T) {
	a := assert.New(t)

	f := runtime.Frame{File: "/src/main.go", Line: 12, Function: "main.main"}

	a.Equal("/src/main.go:12: main.main", FormatStackFrame(f))
	a.Equal([]string{"/src/main.go:12: main.main"}, FormatStack([]runtime.Frame{f}))
}

func TestGetStackSkip(t *testing.T) {
	a := assert.New(t)

	frames := func() []runtime.Frame { return GetStack(10, 1) }()
	if a.NotEmpty(frames) {
		a.True(strings.HasSuffix(frames[0].Function, "stackutil.TestGetStackSkip"), frames[0].Function)
	}
}

func TestInPackage(t *testing.T) {
	for _, tc := range []struct {
		function string
		pkg      string
		expect   bool
	}{
		{"net/http.(*Server).Serve", "net/http", true},
		{"net/http.(*Server).Serve", "net/http.(*Server)", true},
		{"net/http.(*Client).Do", "net/http.(*Server)", false},
		{"net/httputil.DumpRequest", "net/http", false},
		{"main.main", "main", true},
	} {
		t.Run(tc.function+" in "+tc.pkg, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.expect, InPackage(runtime.Frame{Function: tc.function}, tc.pkg))
		})
	}
}
