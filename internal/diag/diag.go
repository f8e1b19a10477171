package diag

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	NotFound         = Kind("not_found")
	MalformedInput   = Kind("malformed_input")
	IOFailure        = Kind("io_failure")
	TransportFailure = Kind("transport_failure")
)

var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrMalformedInput   = fmt.Errorf("malformed input")
	ErrIOFailure        = fmt.Errorf("io failure")
	ErrTransportFailure = fmt.Errorf("transport failure")
)

func (k Kind) sentinel() error {
	switch k {
	case NotFound:
		return ErrNotFound
	case MalformedInput:
		return ErrMalformedInput
	case IOFailure:
		return ErrIOFailure
	case TransportFailure:
		return ErrTransportFailure
	default:
		return nil
	}
}

// Diagnostic is a failure that was reported and skipped rather than
// returned. Subject names the thing that failed: a video id, a file path,
// a playlist id.
type Diagnostic struct {
	Kind    Kind
	Subject string
	Err     error
}

func New(kind Kind, subject string, err error) *Diagnostic {
	return &Diagnostic{Kind: kind, Subject: subject, Err: err}
}

func (d *Diagnostic) Error() string {
	if d.Err == nil {
		return fmt.Sprintf("%s: %s", d.Kind, d.Subject)
	}

	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Err)
}

func (d *Diagnostic) Unwrap() []error {
	var a []error
	if s := d.Kind.sentinel(); s != nil {
		a = append(a, s)
	}
	if d.Err != nil {
		a = append(a, d.Err)
	}
	return a
}

func (d *Diagnostic) MarshalJSON() ([]byte, error) {
	v := struct {
		Kind    Kind   `json:"kind"`
		Subject string `json:"subject"`
		Error   string `json:"error,omitempty"`
	}{Kind: d.Kind, Subject: d.Subject}

	if d.Err != nil {
		v.Error = d.Err.Error()
	}

	return json.Marshal(v)
}

// Classify picks a kind for an arbitrary error from the sentinels it wraps,
// falling back to fallback.
func Classify(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrMalformedInput):
		return MalformedInput
	case errors.Is(err, ErrIOFailure):
		return IOFailure
	case errors.Is(err, ErrTransportFailure):
		return TransportFailure
	default:
		return fallback
	}
}

// KindOf is Classify without a fallback.
func KindOf(err error) (Kind, bool) {
	k := Classify(err, "")
	return k, k != ""
}

// From wraps err as a diagnostic about subject. Errors that are already
// diagnostics are returned as-is.
func From(subject string, err error, fallback Kind) *Diagnostic {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d
	}

	return New(Classify(err, fallback), subject, err)
}

type List []*Diagnostic

func (l *List) Add(d *Diagnostic) {
	if d != nil {
		*l = append(*l, d)
	}
}

func (l List) Count(kind Kind) int {
	n := 0
	for _, e := range l {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l List) Log(logger logrus.FieldLogger) {
	for _, e := range l {
		logger.WithFields(logrus.Fields{
			"diag.kind":    e.Kind,
			"diag.subject": e.Subject,
		}).WithError(e.Err).Warn("skipped")
	}
}
