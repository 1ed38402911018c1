package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "hyprinterview.pid"
const ProtoVer = "1.0"

const appDir = "hyprinterview"

// replyTimeout bounds how long a client waits for the daemon. Start and next
// block until devices open or the submission returns.
const replyTimeout = 2 * time.Minute

type pidManager struct {
	path string
}

type socketManager struct {
	path string
}

// ~/.cache/hyprinterview/control.sock
func getSockPath() (string, error) {
	return cachePath(SockName)
}

// ~/.cache/hyprinterview/hyprinterview.pid
func getPidPath() (string, error) {
	return cachePath(PidName)
}

func cachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}

func SockPath() (string, error) {
	return getSockPath()
}

func PidPath() (string, error) {
	return getPidPath()
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", s.path)
}

// send writes one command line and reads one reply line.
func (s *socketManager) send(line string) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := fmt.Fprintf(c, "%s\n", strings.TrimRight(line, "\n")); err != nil {
		return "", err
	}

	return bufio.NewReader(c).ReadString('\n')
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails when a live daemon owns the pid file and removes stale
// or unreadable pid files.
func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		_ = os.Remove(p.path)
		return nil
	}

	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func defaultSocket() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func defaultPid() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func Listen() (net.Listener, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.listen()
}

func Dial() (net.Conn, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.dial()
}

// SendCommand sends "<command> [arg]" to the daemon and returns its reply line.
func SendCommand(line string) (string, error) {
	s, err := defaultSocket()
	if err != nil {
		return "", err
	}
	return s.send(line)
}

func CheckExistingDaemon() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.checkExisting()
}

func CreatePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.create()
}

func RemovePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.remove()
}

// ParseReply splits a daemon reply into its kind (OK, ERR, STATUS) and payload.
func ParseReply(reply string) (kind, payload string) {
	reply = strings.TrimRight(reply, "\r\n")
	kind, payload, _ = strings.Cut(reply, " ")
	return kind, payload
}
