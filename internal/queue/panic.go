package queue

import "fmt"

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic in queued work: %v", r)
}
