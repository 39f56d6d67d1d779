package util

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// InternalError marks a broken invariant of an upstream pass or of the
// generator itself. It is never reported as an ordinary diagnostic.
type InternalError struct {
	cause error
}

func (e *InternalError) Error() string { return "internal compiler error: " + e.cause.Error() }
func (e *InternalError) Unwrap() error { return e.cause }

// Format prints the captured stack with %+v.
func (e *InternalError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "internal compiler error: %+v", e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// Internalf builds an InternalError for passes that report failure through
// their return value.
func Internalf(format string, args ...interface{}) *InternalError {
	return &InternalError{cause: errors.Errorf(format, args...)}
}

// Fail aborts the current generation run. The panic is recovered once, at the
// entry point of the pass, and turned into an error.
func Fail(format string, args ...interface{}) {
	err := Internalf(format, args...)
	glog.V(1).Infof("%+v", err)
	panic(err)
}

// Assertf fails when cond does not hold.
func Assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		Fail(format, args...)
	}
}

// RecoverInternal converts an *InternalError panic into *errp. Any other panic
// is re-raised.
func RecoverInternal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InternalError); ok {
		*errp = ie
		return
	}
	panic(r)
}
