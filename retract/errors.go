package retract

import "fmt"

// SystemError reports an internal-consistency violation the retraction
// pathway is not expected to recover from (spec §4.4.6 "Failure
// semantics"), mirroring the original source's SystemError(theEnv,
// "RETRACT", code) calls. The core never returns one to its caller — it
// is logged and the offending entry is skipped — but it is kept as a
// distinct type so a caller inspecting logs can match on it.
type SystemError struct {
	Module string
	Code   int
	Detail string
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: system error %d: %s", e.Module, e.Code, e.Detail)
}

// errBlockerOnPlainJoin mirrors retract.c's SystemError(theEnv,"RETRACT",117):
// a match was found on a negated/exists join's blockList whose owning
// join is none of negated, exists, or from-the-right.
func errBlockerOnPlainJoin(detail string) *SystemError {
	return &SystemError{Module: "RETRACT", Code: 117, Detail: detail}
}
