package catchpanic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTest = fmt.Errorf("test_error")

func TestCatchError(t *testing.T) {
	a := assert.New(t)

	err := Catch(func() { panic(errTest) })
	a.ErrorContains(err, "test_error")
	a.ErrorIs(err, errTest)
	a.ErrorIs(err, ErrPanic)
	a.True(IsPanic(err))

	var p *PanicError
	if a.ErrorAs(err, &p) {
		a.NotEmpty(p.Stack)
	}
}

func TestCatchString(t *testing.T) {
	a := assert.New(t)

	err := Catch(func() { panic("test_error") })
	a.ErrorContains(err, "test_error")
	a.True(IsPanic(err))
}

func TestCatchNothing(t *testing.T) {
	a := assert.New(t)

	a.NoError(Catch(func() {}))
}

func TestCatchErr0(t *testing.T) {
	for _, tc := range []struct {
		name  string
		fn    func() error
		panic bool
	}{
		{"returned", func() error { return errTest }, false},
		{"panicked error", func() error { panic(errTest) }, true},
		{"panicked string", func() error { panic("test_error") }, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			err := CatchErr0(tc.fn)
			a.ErrorContains(err, "test_error")
			a.Equal(tc.panic, IsPanic(err))
		})
	}
}

func TestCatchErr1(t *testing.T) {
	for _, tc := range []struct {
		name string
		fn   func() (string, error)
		res  string
		err  bool
	}{
		{"result", func() (string, error) { return "test_result", nil }, "test_result", false},
		{"result and error", func() (string, error) { return "test_result", errTest }, "test_result", true},
		{"error", func() (string, error) { return "", errTest }, "", true},
		{"panic", func() (string, error) { panic(errTest) }, "", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			v, err := CatchErr1(tc.fn)
			a.Equal(tc.res, v)
			if tc.err {
				a.ErrorContains(err, "test_error")
			} else {
				a.NoError(err)
			}
		})
	}
}
