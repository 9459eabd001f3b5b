//go:build linux

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
		Created:  time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec)),
		Accessed: time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec)),
	}
}
