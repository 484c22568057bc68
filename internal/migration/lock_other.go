//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package migration

import (
	"errors"
	"os"
)

var errLocked = errors.New("lock is held")

// tryLock falls back to an exclusively created lock file.
func tryLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errLocked
		}
		return nil, err
	}

	return func() {
		f.Close()
		os.Remove(path)
	}, nil
}
