package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestPidFile(t *testing.T) {
	pm := &pidManager{path: filepath.Join(t.TempDir(), "run", PidName)}

	if err := pm.checkExisting(); err != nil {
		t.Fatalf("checkExisting() without pid file = %v", err)
	}

	if err := pm.create(); err != nil {
		t.Fatalf("create() = %v", err)
	}
	data, _ := os.ReadFile(pm.path)
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("pid file = %q, want own pid", data)
	}

	err := pm.checkExisting()
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("checkExisting() with live owner = %v", err)
	}

	if err := pm.remove(); err != nil {
		t.Fatalf("remove() = %v", err)
	}
	if fileExists(pm.path) {
		t.Error("pid file still present after remove()")
	}
}

func TestPidFile_StaleContentsAreCleared(t *testing.T) {
	for name, contents := range map[string]string{
		"dead process": "99999",
		"garbage":      "not-a-pid",
		"padded":       " 99998\n",
	} {
		t.Run(name, func(t *testing.T) {
			pm := &pidManager{path: filepath.Join(t.TempDir(), PidName)}
			if err := os.WriteFile(pm.path, []byte(contents), 0o600); err != nil {
				t.Fatal(err)
			}
			if err := pm.checkExisting(); err != nil {
				t.Errorf("checkExisting() = %v, want stale file cleared", err)
			}
			if fileExists(pm.path) {
				t.Error("stale pid file not removed")
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}
	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("own process reported dead")
	}
	if pm.isProcessAlive(99999) {
		t.Error("pid 99999 reported alive")
	}
}

// serveLines answers each connection's first line with reply(cmd, arg).
func serveLines(t *testing.T, sm *socketManager, reply func(cmd, arg string) string) {
	t.Helper()
	l, err := sm.listen()
	if err != nil {
		t.Fatalf("listen() = %v", err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
				fmt.Fprintf(c, "%s\n", reply(cmd, arg))
			}(conn)
		}
	}()
}

func TestSocketRoundTrip(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	serveLines(t, sm, func(cmd, arg string) string {
		switch cmd {
		case "start":
			return "OK recording"
		case "goto":
			return "OK question=" + arg
		case "load":
			return "OK loaded=" + filepath.Base(arg)
		case "status":
			return `STATUS {"state":"idle"}`
		default:
			return fmt.Sprintf("ERR unknown=%q", cmd)
		}
	})

	tests := []struct {
		line string
		want string
	}{
		{"start", "OK recording\n"},
		{"goto 3", "OK question=3\n"},
		{"load /tmp/my answers/geo.json", "OK loaded=geo.json\n"},
		{"status\n", "STATUS {\"state\":\"idle\"}\n"},
		{"dance", "ERR unknown=\"dance\"\n"},
	}
	for _, tt := range tests {
		got, err := sm.send(tt.line)
		if err != nil {
			t.Errorf("send(%q) = %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("send(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestSocket_ListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), SockName)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	sm := &socketManager{path: path}
	l, err := sm.listen()
	if err != nil {
		t.Fatalf("listen() over stale file = %v", err)
	}
	l.Close()
}

func TestSocket_SendWithoutDaemon(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	if _, err := sm.send("status"); err == nil {
		t.Error("send() without a listener should fail")
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		reply   string
		kind    string
		payload string
	}{
		{"OK recording\n", "OK", "recording"},
		{"ERR interview: not recording\n", "ERR", "interview: not recording"},
		{"STATUS {\"index\":0}\r\n", "STATUS", "{\"index\":0}"},
		{"OK\n", "OK", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		kind, payload := ParseReply(tt.reply)
		if kind != tt.kind || payload != tt.payload {
			t.Errorf("ParseReply(%q) = %q, %q; want %q, %q", tt.reply, kind, payload, tt.kind, tt.payload)
		}
	}
}

func TestDefaultPathsUseCacheDir(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)

	sock, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath() = %v", err)
	}
	pid, err := PidPath()
	if err != nil {
		t.Fatalf("PidPath() = %v", err)
	}

	for path, name := range map[string]string{sock: SockName, pid: PidName} {
		if filepath.Dir(path) != filepath.Join(cache, "hyprinterview") || filepath.Base(path) != name {
			t.Errorf("path = %s, want %s under %s/hyprinterview", path, name, cache)
		}
	}
}

func TestPublicPidLifecycle(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Fatalf("CheckExistingDaemon() = %v", err)
	}
	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile() = %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon() should see this process")
	}
	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile() = %v", err)
	}
	pid, _ := PidPath()
	if fileExists(pid) {
		t.Error("pid file left behind")
	}
}
