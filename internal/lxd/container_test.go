package lxd

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeLXC struct {
	calls [][]string
	// fail maps a subcommand to the error it should return.
	fail map[string]error
}

func (f *fakeLXC) run(_, _ io.Writer, args ...string) error {
	f.calls = append(f.calls, args)
	if err, ok := f.fail[args[0]]; ok {
		return err
	}
	return nil
}

func (f *fakeLXC) subcommands() []string {
	var out []string
	for _, call := range f.calls {
		out = append(out, call[0])
	}
	return out
}

func newTestContainer(fake *fakeLXC) *Container {
	c := New("ubuntu:jammy", io.Discard, io.Discard)
	c.runLXC = fake.run
	c.sleep = func(time.Duration) {}
	return c
}

func TestNewContainerName(t *testing.T) {
	t.Parallel()

	a := New("", io.Discard, io.Discard)
	b := New("", io.Discard, io.Discard)
	if !strings.HasPrefix(a.Name, "lpshipit-") {
		t.Fatalf("name = %q", a.Name)
	}
	if a.Name == b.Name {
		t.Fatalf("container names collide: %q", a.Name)
	}
	if a.Image != DefaultImage {
		t.Fatalf("image = %q", a.Image)
	}
}

func TestWaitForNetworkingRetriesThenFails(t *testing.T) {
	t.Parallel()

	fake := &fakeLXC{fail: map[string]error{"exec": errors.New("no route")}}
	c := newTestContainer(fake)
	var slept int
	c.sleep = func(d time.Duration) {
		if d != networkingInterval {
			t.Fatalf("sleep interval = %v", d)
		}
		slept++
	}

	err := c.WaitForNetworking()
	if !errors.Is(err, ErrNetworkingTimeout) {
		t.Fatalf("err = %v", err)
	}
	if len(fake.calls) != networkingAttempts {
		t.Fatalf("attempts = %d, want %d", len(fake.calls), networkingAttempts)
	}
	if slept != networkingAttempts-1 {
		t.Fatalf("sleeps = %d, want %d", slept, networkingAttempts-1)
	}
}

func TestWaitForNetworkingSucceedsEarly(t *testing.T) {
	t.Parallel()

	fake := &fakeLXC{}
	c := newTestContainer(fake)
	if err := c.WaitForNetworking(); err != nil {
		t.Fatalf("WaitForNetworking: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("attempts = %d, want 1", len(fake.calls))
	}
}

func TestWithContainerTearsDownOnFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeLXC{}
	bodyErr := errors.New("test command failed")
	err := withFakeContainer(fake, func(c *Container) error {
		return bodyErr
	})
	if !errors.Is(err, bodyErr) {
		t.Fatalf("err = %v", err)
	}
	subs := fake.subcommands()
	if subs[len(subs)-1] != "delete" {
		t.Fatalf("container not deleted last: %v", subs)
	}
}

func TestWithContainerSkipsBodyWhenNetworkingFails(t *testing.T) {
	t.Parallel()

	fake := &fakeLXC{fail: map[string]error{"exec": errors.New("no route")}}
	ran := false
	err := withFakeContainer(fake, func(c *Container) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrNetworkingTimeout) {
		t.Fatalf("err = %v", err)
	}
	if ran {
		t.Fatal("body ran despite networking failure")
	}
	subs := fake.subcommands()
	if subs[len(subs)-1] != "delete" {
		t.Fatalf("container not deleted: %v", subs)
	}
}

// withFakeContainer mirrors WithContainer but swaps in the fake runner before
// any lxc call happens.
func withFakeContainer(fake *fakeLXC, fn func(*Container) error) error {
	c := New("", io.Discard, io.Discard)
	c.runLXC = fake.run
	c.sleep = func(time.Duration) {}
	if err := c.Launch(); err != nil {
		return err
	}
	defer c.Delete()
	if err := c.WaitForNetworking(); err != nil {
		return err
	}
	return fn(c)
}

func TestPushWorkspaceArgs(t *testing.T) {
	t.Parallel()

	fake := &fakeLXC{}
	c := newTestContainer(fake)
	if err := c.PushWorkspace("/tmp/workspace"); err != nil {
		t.Fatalf("PushWorkspace: %v", err)
	}
	push := fake.calls[0]
	want := []string{"file", "push", "-r", "/tmp/workspace", c.Name + "/root/"}
	if strings.Join(push, " ") != strings.Join(want, " ") {
		t.Fatalf("push args = %v, want %v", push, want)
	}
	chown := fake.calls[1]
	if chown[0] != "exec" || chown[len(chown)-1] != "/root/" {
		t.Fatalf("chown args = %v", chown)
	}
}

func TestPushCredentialsSkipsMissingFiles(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ".gitconfig"), []byte("[user]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeLXC{}
	c := newTestContainer(fake)
	if err := c.PushCredentials(home); err != nil {
		t.Fatalf("PushCredentials: %v", err)
	}
	for _, call := range fake.calls {
		if call[0] == "file" && strings.Contains(strings.Join(call, " "), ".ssh") {
			t.Fatalf("pushed missing .ssh dir: %v", call)
		}
	}
}

func TestExecReturnsCommandExitCode(t *testing.T) {
	t.Parallel()

	// Produce a genuine *exec.ExitError to mimic a failing lxc exec.
	exitErr := exec.Command("sh", "-c", "exit 3").Run()
	fake := &fakeLXC{fail: map[string]error{"exec": exitErr}}
	c := newTestContainer(fake)

	code, err := c.Exec("/root/workspace", "tox")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}

	okFake := &fakeLXC{}
	c = newTestContainer(okFake)
	code, err = c.Exec("/root/workspace", "tox")
	if err != nil || code != 0 {
		t.Fatalf("Exec success = %d, %v", code, err)
	}
	args := okFake.calls[0]
	if args[len(args)-1] != "cd '/root/workspace' && tox" {
		t.Fatalf("shell command = %q", args[len(args)-1])
	}
}
