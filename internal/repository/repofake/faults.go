// Package repofake holds in-memory stores satisfying the service store
// interfaces. Each fake can be told to fail a named method, which is how
// the partial-failure paths are exercised.
package repofake

import "sync"

// Faults maps a method name to the error it should return.
type Faults struct {
	mu   sync.Mutex
	errs map[string]error
}

// Fail makes every later call of method return err. A nil err clears it.
func (f *Faults) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

func (f *Faults) check(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[method]
}
