package catchpanic

import (
	"errors"
	"fmt"
	"runtime"

	"fknsrs.biz/p/ytmirror/internal/stackutil"
)

var ErrPanic = fmt.Errorf("panic")

// PanicError is a recovered panic along with where it happened.
type PanicError struct {
	Value interface{}
	Stack []runtime.Frame
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return fmt.Sprintf("panic: %s", err.Error())
	}

	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrPanic, err}
	}

	return []error{ErrPanic}
}

func Catch(fn func()) (err error) {
	defer func() {
		if ex := recover(); ex != nil {
			err = fmt.Errorf("catchpanic.Catch: %w", &PanicError{
				Value: ex,
				// deferred func, runtime.gopanic
				Stack: stackutil.GetStack(32, 2),
			})
		}
	}()

	fn()

	return
}

func CatchErr0(fn func() error) error {
	var err error

	if err1 := Catch(func() { err = fn() }); err1 != nil {
		return err1
	}

	return err
}

func CatchErr1[T any](fn func() (T, error)) (T, error) {
	var res T
	var err error

	if err1 := Catch(func() { res, err = fn() }); err1 != nil {
		err = err1
	}

	return res, err
}

func IsPanic(err error) bool {
	return errors.Is(err, ErrPanic)
}
