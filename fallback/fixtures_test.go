package fallback

import (
	"errors"
	"strconv"
)

type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string {
	return e.Msg
}

type IllegalArgumentError struct {
	RuntimeError
}

type NumberFormatError struct {
	IllegalArgumentError
}

type IllegalStateError struct {
	RuntimeError
}

type ValueError struct {
	Code int
}

func (e ValueError) Error() string {
	return "value error " + strconv.Itoa(e.Code)
}

type WrappedValueError struct {
	ValueError
}

type Temporary interface {
	error
	Temporary() bool
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Temporary() bool { return true }

type testService struct {
	prefix string
}

func (s *testService) TestMethod(input string) (string, error) {
	return "", &RuntimeError{Msg: "test method failed"}
}

func (s *testService) FallbackMethod(input string, err *RuntimeError) (string, error) {
	return s.prefix + "runtime: " + input, nil
}

func (s *testService) recoverIllegalArgument(input string, err *IllegalArgumentError) (string, error) {
	return s.prefix + "illegal argument: " + input + " (" + err.Msg + ")", nil
}

func (s *testService) recoverRuntimeAgain(input string, err *RuntimeError) (string, error) {
	return "", nil
}

func (s *testService) recoverTemporary(input string, err Temporary) (string, error) {
	return s.prefix + "temporary: " + err.Error(), nil
}

func (s *testService) recoverValue(input string, err ValueError) (string, error) {
	return "value " + strconv.Itoa(err.Code), nil
}

func (s *testService) CatchAll(input string, err error) (string, error) {
	return "caught: " + err.Error(), nil
}

func (s *testService) Rethrow(input string, err *RuntimeError) (string, error) {
	return "partial", errors.New("fallback failed")
}

func (s *testService) ReturnMismatchRecovery(input string, err error) (any, error) {
	return nil, nil
}

func (s *testService) WrongArity(err *RuntimeError) (string, error) {
	return "", nil
}

type baseFailure struct {
	Msg string
}

func (e *baseFailure) Error() string {
	return e.Msg
}

type childFailure struct {
	baseFailure
}

func (s *testService) recoverBase(input string, err *baseFailure) (string, error) {
	return "base: " + err.Msg, nil
}
