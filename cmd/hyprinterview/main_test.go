package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func stubDaemon(t *testing.T, reply string, err error) *[]string {
	t.Helper()
	var sent []string
	orig := sendFunc
	sendFunc = func(line string) (string, error) {
		sent = append(sent, line)
		return reply, err
	}
	t.Cleanup(func() { sendFunc = orig })
	return &sent
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsSendProtocolLines(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"start"}, "start"},
		{[]string{"stop"}, "stop"},
		{[]string{"retry"}, "retry"},
		{[]string{"next"}, "next"},
		{[]string{"goto", "3"}, "goto 3"},
		{[]string{"fetch", "iv-42"}, "fetch iv-42"},
		{[]string{"close"}, "close"},
		{[]string{"quit"}, "quit"},
		{[]string{"version"}, "version"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			sent := stubDaemon(t, "OK\n", nil)
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("execute(%v) error = %v", tt.args, err)
			}
			if len(*sent) != 1 || (*sent)[0] != tt.want {
				t.Errorf("sent %v, want [%s]", *sent, tt.want)
			}
			if out != "OK\n" {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestLoadSendsAbsolutePath(t *testing.T) {
	sent := stubDaemon(t, "OK loaded=x questions=1\n", nil)
	if _, err := execute(t, "load", "questions.json"); err != nil {
		t.Fatalf("load error = %v", err)
	}
	path := strings.TrimPrefix((*sent)[0], "load ")
	if !filepath.IsAbs(path) || filepath.Base(path) != "questions.json" {
		t.Errorf("sent %q, want an absolute path", (*sent)[0])
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := [][]string{
		{"goto", "zero"},
		{"goto", "0"},
		{"goto"},
		{"fetch", "a b"},
		{"start", "extra"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			sent := stubDaemon(t, "OK\n", nil)
			if _, err := execute(t, args...); err == nil {
				t.Errorf("execute(%v) expected error", args)
			}
			if len(*sent) != 0 {
				t.Errorf("sent %v for invalid arguments", *sent)
			}
		})
	}
}

func TestErrorReplyBecomesError(t *testing.T) {
	stubDaemon(t, "ERR no interview loaded\n", nil)
	_, err := execute(t, "start")
	if err == nil || err.Error() != "no interview loaded" {
		t.Errorf("error = %v, want daemon message", err)
	}
}

func TestDaemonUnreachable(t *testing.T) {
	stubDaemon(t, "", errors.New("dial unix: no such file"))
	_, err := execute(t, "next")
	if err == nil || !strings.Contains(err.Error(), "hyprinterview serve") {
		t.Errorf("error = %v, want hint to start the daemon", err)
	}
}

func TestStatusRendering(t *testing.T) {
	stubDaemon(t, `STATUS {"loaded":true,"interviewId":"iv-1","index":0,"total":1,"prompt":"Apa ibu kota Indonesia?","state":"idle","slots":[{}]}`+"\n", nil)

	out, err := execute(t, "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "Apa ibu kota Indonesia?") || !strings.Contains(out, "Question 1/1") {
		t.Errorf("status output:\n%s", out)
	}
}

func TestStatusJSON(t *testing.T) {
	stubDaemon(t, `STATUS {"loaded":false}`+"\n", nil)
	t.Cleanup(func() {
		status, _, _ := rootCmd.Find([]string{"status"})
		status.Flags().Set("json", "false")
	})
	out, err := execute(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json error = %v", err)
	}
	if strings.TrimSpace(out) != `{"loaded":false}` {
		t.Errorf("output = %q", out)
	}
}

func TestModelList(t *testing.T) {
	var out bytes.Buffer
	if err := runModelList(&out, "deepgram", true); err != nil {
		t.Fatalf("runModelList() error = %v", err)
	}
	text := out.String()
	for _, want := range []string{"Deepgram (deepgram)", "* nova-3", "live", "Indonesian (id)"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "whisper-1") {
		t.Error("provider filter ignored")
	}

	if err := runModelList(&out, "nope", false); err == nil {
		t.Error("unknown provider should fail")
	}
}
