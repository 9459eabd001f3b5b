//go:build darwin

package policy

import (
	"os"
	"syscall"
	"time"
)

func fileTimestamps(info os.FileInfo) Timestamps {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Timestamps{Created: info.ModTime(), Accessed: info.ModTime()}
	}
	return Timestamps{
		Created:  time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec),
		Accessed: time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec),
	}
}
