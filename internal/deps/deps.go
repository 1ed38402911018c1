package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
	Required  bool
	Hint      string
}

// CheckPwRecord checks for the PipeWire capture tool used for the microphone
func CheckPwRecord() Status {
	s := checkBinary("pw-record", "--version")
	s.Required = true
	s.Hint = "install pipewire (pw-record captures the microphone)"
	return s
}

// CheckWpctl checks for wpctl, used to detect a muted microphone
func CheckWpctl() Status {
	s := checkBinary("wpctl", "--version")
	s.Hint = "install wireplumber to get muted-microphone warnings"
	return s
}

// CheckNotifySend checks for notify-send, used by desktop notifications
func CheckNotifySend() Status {
	s := checkBinary("notify-send", "--version")
	s.Hint = "install libnotify or set notifications.type = \"log\""
	return s
}

// CheckCamera checks that the configured V4L2 node exists and is a character device
func CheckCamera(node string) Status {
	status := Status{Name: "camera " + node, Required: true, Hint: "connect a camera or set media.camera"}
	info, err := os.Stat(node)
	if err != nil {
		if os.IsPermission(err) {
			status.Hint = "add your user to the video group"
		}
		return status
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		status.Hint = fmt.Sprintf("%s is not a device node", node)
		return status
	}
	status.Installed = true
	status.Path = node
	return status
}

// Doctor runs every check for a camera node.
func Doctor(cameraNode string) []Status {
	return []Status{
		CheckPwRecord(),
		CheckWpctl(),
		CheckNotifySend(),
		CheckCamera(cameraNode),
	}
}

// MissingRequired lists the names of required dependencies that are absent.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func checkBinary(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Name: name, Installed: false}
	}

	status := Status{
		Name:      name,
		Installed: true,
		Path:      path,
	}

	cmd := exec.Command(path, versionFlag)
	output, err := cmd.Output()
	if err == nil {
		// parse first line as version
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}
