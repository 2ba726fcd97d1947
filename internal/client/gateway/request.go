package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
	"github.com/dmitrijs2005/medadmin/internal/client/transport"
	"github.com/dmitrijs2005/medadmin/internal/common"
	"github.com/google/uuid"
)

// minTokenLength filters out placeholder values such as "null" or
// "undefined" left in storage.
const minTokenLength = 10

type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodPatch  Method = "patch"
	MethodDelete Method = "delete"
)

// ParseMethod accepts a verb in any case.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(s)); m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("unsupported method %q", s)
}

func (m Method) HTTP() string {
	return strings.ToUpper(string(m))
}

// Multipart bodies are sent as multipart/form-data.
type Multipart = models.Multipart

func (g *Gateway) apiPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(g.cfg.APIPrefix, "/") + path
}

func (g *Gateway) buildRequest(ctx context.Context, method Method, path string, body any, token string) (transport.Request, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set(common.RequestIDHeaderName, uuid.NewString())

	if len(token) > minTokenLength {
		h.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	if g.tenants != nil && g.nav != nil {
		if id, ok := g.tenants.Resolve(ctx, g.nav.CurrentPath()); ok {
			h.Set(common.TenantHeaderName, id)
		}
	}

	data, contentType, err := encodeBody(body)
	if err != nil {
		return transport.Request{}, err
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}

	return transport.Request{
		Method: method.HTTP(),
		Path:   g.apiPath(path),
		Header: h,
		Body:   data,
	}, nil
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return encodeMultipart(b)
	case json.RawMessage:
		return b, "application/json", nil
	case []byte:
		return b, "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

// encodeMultipart returns the form with the writer's boundary content type.
func encodeMultipart(m *Multipart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	for _, f := range m.Files {
		field := f.Field
		if field == "" {
			field = "file"
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.FileName))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		hdr.Set("Content-Type", ct)

		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %s: %w", f.FileName, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("write form file %s: %w", f.FileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
