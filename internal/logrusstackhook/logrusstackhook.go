package logrusstackhook

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmirror/internal/stackutil"
)

const maxDepth = 25

type FilterFunc func(index int, frame runtime.Frame) bool

// RemoveFunctionsWithPrefix drops frames from the named packages, written the
// way they appear in runtime.Frame.Function (e.g. "github.com/sirupsen/logrus").
func RemoveFunctionsWithPrefix(prefixes ...string) FilterFunc {
	return func(index int, frame runtime.Frame) bool {
		for _, prefix := range prefixes {
			if stackutil.InPackage(frame, prefix) {
				return false
			}
		}

		return true
	}
}

func CombineFilters(a ...FilterFunc) FilterFunc {
	return func(index int, frame runtime.Frame) bool {
		for _, fn := range a {
			if !fn(index, frame) {
				return false
			}
		}

		return true
	}
}

var (
	DefaultLevels = []logrus.Level{logrus.DebugLevel, logrus.TraceLevel}
	DefaultFilter = RemoveFunctionsWithPrefix(
		"github.com/sirupsen/logrus",
		"fknsrs.biz/p/ytmirror/internal/logrusstackhook.(*StackHook)",
		"fknsrs.biz/p/ytmirror/internal/stackutil",
	)
)

// StackHook attaches the caller's stack to entries at the given levels, as
// stack.00, stack.01 and so on, skipping frames the filter rejects.
type StackHook struct {
	levels []logrus.Level
	filter FilterFunc
}

func NewStackHook(levels []logrus.Level, filter FilterFunc) *StackHook {
	if levels == nil {
		levels = DefaultLevels
	}

	if filter == nil {
		filter = DefaultFilter
	} else {
		filter = CombineFilters(DefaultFilter, filter)
	}

	return &StackHook{levels: levels, filter: filter}
}

func (h *StackHook) Levels() []logrus.Level { return h.levels }

func (h *StackHook) Fire(e *logrus.Entry) error {
	n := 0

	for index, frame := range stackutil.GetStack(maxDepth, 0) {
		if !h.filter(index, frame) {
			continue
		}

		e.Data[fmt.Sprintf("stack.%02d", n)] = stackutil.FormatStackFrame(frame)
		n++
	}

	return nil
}
