package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/medadmin/internal/client/gateway"
	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/tenant"
	"github.com/dmitrijs2005/medadmin/internal/common"
)

var errNotLoggedIn = errors.New("not logged in")

func (a *App) getStatus() string {
	mode := string(a.watcher.Mode())
	u := a.user.Load()
	if u == nil {
		return fmt.Sprintf("%s %s", mode, a.nav.CurrentPath())
	}
	name := u.Email
	if name == "" {
		name = u.Name
	}
	return fmt.Sprintf("%s %s@%s", mode, name, a.nav.CurrentPath())
}

// report prints err for the user and hands it back to the caller.
func (a *App) report(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, gateway.ErrSessionExpired):
		fmt.Fprintln(a.out, "Session expired, please log in again")
	case errors.Is(err, gateway.ErrRedirectInProgress):
		fmt.Fprintln(a.out, "Session is being reset, please log in again")
	case errors.Is(err, common.ErrLocalDataNotAvailable):
		fmt.Fprintln(a.out, "Offline and nothing cached for this path")
	case errors.Is(err, common.ErrUnauthorized):
		fmt.Fprintln(a.out, "Invalid email or password")
	default:
		fmt.Fprintf(a.out, "%s failed: %v\n", op, err)
	}
	a.log.Debug(ctx, op+" failed", "error", err)
	return err
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	org, err := GetSimpleText(a.reader, "Organization slug (optional)", a.out)
	if err != nil {
		return err
	}

	u, err := a.gateway.Login(ctx, models.Credentials{Email: email, Password: password, Organization: org})
	if err != nil {
		return a.report(ctx, "login", err)
	}
	a.user.Store(u)

	home := "/"
	if org != "" {
		home = "/org/" + strings.ToLower(org)
	}
	a.nav.Navigate(home)

	if !a.watcher.IsOnline() {
		fmt.Fprintln(a.out, "Logged in offline as", u.Email)
		return nil
	}
	fmt.Fprintln(a.out, "Logged in as", u.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.gateway.Logout(ctx)
	a.user.Store(nil)
	if err != nil {
		return a.report(ctx, "logout", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Request sends method to path. Writes other than delete ask for a JSON body.
func (a *App) Request(ctx context.Context, method gateway.Method, path string) error {
	if path == "" {
		fmt.Fprintln(a.out, "usage:", string(method), "<path>")
		return nil
	}

	var body any
	switch method {
	case gateway.MethodPost, gateway.MethodPut, gateway.MethodPatch:
		text, err := GetMultiline(a.reader, "JSON body", a.out)
		if err != nil {
			return err
		}
		if text != "" {
			if !json.Valid([]byte(text)) {
				fmt.Fprintln(a.out, "Body is not valid JSON")
				return nil
			}
			body = json.RawMessage(text)
		}
	}

	resp, err := a.gateway.Do(ctx, method, path, body)
	if err != nil {
		return a.report(ctx, string(method), err)
	}
	a.printJSON(resp)
	return nil
}

// Upload posts file to path as multipart/form-data, with extra form fields
// read from the prompt.
func (a *App) Upload(ctx context.Context, path, file string) error {
	if path == "" || file == "" {
		fmt.Fprintln(a.out, "usage: upload <path> <file>")
		return nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return a.report(ctx, "upload", err)
	}
	fields, err := GetFormFields(a.reader, a.out)
	if err != nil {
		return a.report(ctx, "upload", err)
	}

	form := &gateway.Multipart{
		Fields: fields,
		Files: []models.FilePart{{
			FileName:    filepath.Base(file),
			ContentType: mime.TypeByExtension(filepath.Ext(file)),
			Content:     content,
		}},
	}
	resp, err := a.gateway.Post(ctx, path, form)
	if err != nil {
		return a.report(ctx, "upload", err)
	}
	a.printJSON(resp)
	return nil
}

// Cd moves to route. Routes under /org/<slug> select the tenant.
func (a *App) Cd(ctx context.Context, route string) error {
	if route == "" {
		fmt.Fprintln(a.out, a.nav.CurrentPath())
		return nil
	}
	a.nav.Navigate(route)
	if slug, ok := tenant.SlugFromRoute(route); ok {
		if _, known := a.tenants.Resolve(ctx, route); !known {
			fmt.Fprintf(a.out, "Tenant %q has no id yet, use: tenant %s <id>\n", slug, slug)
		}
	}
	return nil
}

// Tenant records which tenant id a slug stands for.
func (a *App) Tenant(ctx context.Context, slug, id string) error {
	if slug == "" || id == "" {
		fmt.Fprintln(a.out, "usage: tenant <slug> <id>")
		return nil
	}
	if err := a.tenants.Remember(ctx, slug, id); err != nil {
		return a.report(ctx, "tenant", err)
	}
	fmt.Fprintf(a.out, "Tenant %s -> %s\n", strings.ToLower(slug), id)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	a.printJSON(a.gateway.Diagnose(ctx))
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(ctx, "sync", errNotLoggedIn)
	}
	n, err := a.gateway.SyncOutbox(ctx)
	fmt.Fprintf(a.out, "Sent %d queued request(s)\n", n)
	if err != nil {
		return a.report(ctx, "sync", err)
	}
	return nil
}

func (a *App) Abort(ctx context.Context) error {
	a.gateway.AbortReads()
	fmt.Fprintln(a.out, "Pending reads aborted")
	return nil
}

func (a *App) printJSON(v any) {
	var data []byte
	switch b := v.(type) {
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Indent(&buf, b, "", "  "); err != nil {
			data = b
		} else {
			data = buf.Bytes()
		}
	default:
		var err error
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Fprintln(a.out, err)
			return
		}
	}
	fmt.Fprintln(a.out, string(data))
}
