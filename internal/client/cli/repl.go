package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/medadmin/internal/client/gateway"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Request(ctx context.Context, method gateway.Method, path string) error
	Upload(ctx context.Context, path, file string) error
	Cd(ctx context.Context, route string) error
	Tenant(ctx context.Context, slug, id string) error
	Status(ctx context.Context) error
	Sync(ctx context.Context) error
	Abort(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the medadmin CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need more input (a request
// body, credentials) read it from the same reader. The loop exits on EOF or
// when the user types "exit" or "quit".
//
//	Not logged in:
//	  help, login, cd, tenant, status, exit | quit
//
//	Logged in, additionally:
//	  get|post|put|patch|delete <path>
//	  upload <path> <file>
//	  sync, abort, logout
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("med> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		arg := func(i int) string {
			if i < len(parts) {
				return parts[i]
			}
			return ""
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: get, post, put, patch, delete, upload, cd, tenant, status, sync, abort, logout, exit")
			} else {
				printlnFn("Available commands: login, cd, tenant, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "get", "post", "put", "patch", "delete":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			m, _ := gateway.ParseMethod(cmd)
			_ = a.Request(ctx, m, arg(1))

		case "upload":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			_ = a.Upload(ctx, arg(1), arg(2))

		case "cd":
			_ = a.Cd(ctx, arg(1))

		case "tenant":
			_ = a.Tenant(ctx, arg(1), arg(2))

		case "status":
			_ = a.Status(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "abort":
			_ = a.Abort(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
