package client

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ListenSeqpacket creates and binds a SOCK_SEQPACKET unix socket at path,
// the transport §3 Client names ("a descriptor pair (transport,
// wakeup-eventfd)").
func ListenSeqpacket(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, errors.Wrap(err, "client: socket")
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "client: bind")
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "client: listen")
	}
	return fd, nil
}

// AcceptCredentials reads SO_PEERCRED off an accepted connection fd,
// populating the pid/uid half of Credentials (exe/comm are filled in
// separately from /proc/<pid>/exe and /proc/<pid>/comm, outside this
// package's concern).
func AcceptCredentials(fd int) (Credentials, error) {
	cred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "client: SO_PEERCRED")
	}
	return Credentials{PID: cred.Pid, UID: cred.Uid}, nil
}

// NewWakeupEventfd creates the eventfd a client's write-ready task
// signals to wake a blocked flush (§3 Client "wakeup-eventfd").
func NewWakeupEventfd() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, errors.Wrap(err, "client: eventfd")
	}
	return fd, nil
}
