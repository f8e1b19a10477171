package logrusstackhook

import (
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestFire(t *testing.T) {
	a := assert.New(t)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(NewStackHook(nil, nil))

	logger.Info("no stack")
	logger.Debug("with stack")

	entries := hook.AllEntries()
	if !a.Len(entries, 2) {
		return
	}

	a.NotContains(entries[0].Data, "stack.00")

	top, ok := entries[1].Data["stack.00"].(string)
	if a.True(ok) {
		a.Contains(top, "logrusstackhook.TestFire")
	}

	for k, v := range entries[1].Data {
		if strings.HasPrefix(k, "stack.") {
			a.NotContains(v, "github.com/sirupsen/logrus.")
		}
	}
}

func TestExtraFilter(t *testing.T) {
	a := assert.New(t)

	logger, hook := test.NewNullLogger()
	logger.AddHook(NewStackHook([]logrus.Level{logrus.WarnLevel}, RemoveFunctionsWithPrefix("fknsrs.biz/p/ytmirror/internal/logrusstackhook")))

	logger.Warn("filtered")

	if e := hook.LastEntry(); a.NotNil(e) {
		for k, v := range e.Data {
			if strings.HasPrefix(k, "stack.") {
				a.NotContains(v, "TestExtraFilter")
			}
		}
	}
}

func TestRemoveFunctionsWithPrefix(t *testing.T) {
	a := assert.New(t)

	fn := RemoveFunctionsWithPrefix("database/sql")

	a.False(fn(0, runtime.Frame{Function: "database/sql.(*DB).Query"}))
	a.True(fn(0, runtime.Frame{Function: "database/sqlx.Query"}))
	a.True(fn(0, runtime.Frame{Function: "main.main"}))
}
