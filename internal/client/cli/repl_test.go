package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/medadmin/internal/client/gateway"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Request(ctx context.Context, m gateway.Method, path string) error {
	f.calls = append(f.calls, fmt.Sprintf("%s %s", m, path))
	return nil
}
func (f *fakeExec) Upload(ctx context.Context, path, file string) error {
	f.calls = append(f.calls, "upload "+path+" "+file)
	return nil
}
func (f *fakeExec) Cd(ctx context.Context, route string) error {
	f.calls = append(f.calls, "cd "+route)
	return nil
}
func (f *fakeExec) Tenant(ctx context.Context, slug, id string) error {
	f.calls = append(f.calls, "tenant "+slug+" "+id)
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Sync(ctx context.Context) error { f.calls = append(f.calls, "sync"); return nil }
func (f *fakeExec) Abort(ctx context.Context) error { f.calls = append(f.calls, "abort"); return nil }

func silence(t *testing.T) *[]string {
	t.Helper()
	var out []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &out
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silence(t)

	input := strings.Join([]string{
		"help",
		"get /patients",
		"login",
		"help",
		"GET /patients",
		"post /patients",
		"delete /patients/7",
		"upload /files scan.pdf",
		"cd /org/acme",
		"tenant acme t-1",
		"status",
		"sync",
		"abort",
		"foobar",
		"logout",
		"exit",
		"status",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	require.Equal(t, []string{
		"login",
		"get /patients",
		"post /patients",
		"delete /patients/7",
		"upload /files scan.pdf",
		"cd /org/acme",
		"tenant acme t-1",
		"status",
		"sync",
		"abort",
		"logout",
	}, exec.calls)
}

func TestRunREPL_RequiresLoginForRequests(t *testing.T) {
	out := silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" },
		bufio.NewReader(strings.NewReader("put /x\nupload /f a.txt\nquit\n")))

	require.Empty(t, exec.calls)
	require.Contains(t, *out, "Please log in first")
	require.Contains(t, *out, "Bye!")
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" },
		bufio.NewReader(strings.NewReader("\n\nstatus")))

	require.Equal(t, []string{"status"}, exec.calls)
}
