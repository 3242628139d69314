package spyder

import "fmt"

// Error is a named crawl error for conditions defined by the caller, such as
// a policy or hook giving up on the crawl.
type Error struct {
	Name  string
	Value interface{}
}

func NewError(name string, value interface{}) *Error {
	return &Error{Name: name, Value: value}
}

func (e *Error) Error() string {
	return e.Name + ":" + fmt.Sprintf("%#v", e.Value)
}
