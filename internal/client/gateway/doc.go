// Package gateway is the single entry point for authenticated calls to the
// clinic backend.
//
// Every request goes through the same steps, in order:
//
//  1. connectivity check: while offline the request is answered by the
//     offline service and nothing else happens;
//  2. proactive refresh when the access token expires within the refresh
//     buffer;
//  3. header building (bearer token, tenant scope, request id);
//  4. dispatch, with GET responses cached for offline use in the background;
//  5. error classification: an auth failure triggers one refresh and one
//     retry, an unrecoverable one tears the session down and sends the user
//     to the login route exactly once.
//
// Only one refresh runs at a time. Callers that need a token while a
// refresh is in flight wait for its outcome instead of starting their own;
// see package session.
package gateway
