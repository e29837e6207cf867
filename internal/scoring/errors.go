package scoring

import "fmt"

// DictionaryError is returned when a dictionary cannot be loaded or compiled.
type DictionaryError struct {
	Path    string
	Message string
	Cause   error
}

func (e *DictionaryError) Error() string {
	where := e.Path
	if where == "" {
		where = "(inline)"
	}
	if e.Cause != nil {
		return fmt.Sprintf("dictionary %s: %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("dictionary %s: %s", where, e.Message)
}

func (e *DictionaryError) Unwrap() error {
	return e.Cause
}
