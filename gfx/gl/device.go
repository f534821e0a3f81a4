package gl

import "golang.org/x/sys/unix"

func openRenderNode(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
}

func closeFd(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}
