//go:build !linux

package logrotate

import (
	"os"
	"time"
)

// creationTime falls back to the modification time where birth time is not
// portably available.
func creationTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
