package gateway

import (
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/medadmin/internal/client/models"
)

// The backend has returned tokens at several nesting levels over time.
// Each list is probed in order and the first non-empty value wins. Keep new
// shapes here rather than at call sites.
var (
	accessTokenPaths = []string{
		"data.access_token",
		"data.accessToken",
		"data.tokens.accessToken",
		"data.tokens.access_token",
		"data.token",
		"tokens.accessToken",
		"tokens.access_token",
		"access_token",
		"accessToken",
		"token",
	}

	refreshTokenPaths = []string{
		"data.refresh_token",
		"data.refreshToken",
		"data.tokens.refreshToken",
		"data.tokens.refresh_token",
		"tokens.refreshToken",
		"tokens.refresh_token",
		"refresh_token",
		"refreshToken",
	}

	userPaths = []string{
		"data.user",
		"data.customer",
		"user",
		"customer",
	}
)

// extractor pulls one value out of a decoded envelope.
type extractor func(envelope map[string]any) (any, bool)

func fieldPath(path string) extractor {
	keys := strings.Split(path, ".")
	return func(envelope map[string]any) (any, bool) {
		var v any = envelope
		for _, k := range keys {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			if v, ok = m[k]; !ok {
				return nil, false
			}
		}
		return v, true
	}
}

func extractors(paths []string) []extractor {
	out := make([]extractor, len(paths))
	for i, p := range paths {
		out[i] = fieldPath(p)
	}
	return out
}

var (
	accessTokenExtractors  = extractors(accessTokenPaths)
	refreshTokenExtractors = extractors(refreshTokenPaths)
	userExtractors         = extractors(userPaths)
)

func firstString(envelope map[string]any, list []extractor) string {
	for _, x := range list {
		if v, ok := x(envelope); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstObject(envelope map[string]any, list []extractor) json.RawMessage {
	for _, x := range list {
		v, ok := x(envelope)
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			raw, err := json.Marshal(m)
			if err == nil {
				return raw
			}
		}
	}
	return nil
}

// extractTokens reads a login or refresh response. A body that is not a
// JSON object yields an empty set.
func extractTokens(body []byte) models.TokenSet {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.TokenSet{}
	}
	return models.TokenSet{
		AccessToken:  firstString(envelope, accessTokenExtractors),
		RefreshToken: firstString(envelope, refreshTokenExtractors),
		User:         firstObject(envelope, userExtractors),
	}
}
