// Package authclient is the client side of the auth service.
//
// Session holds the signed-in user and the current access token. Transport
// attaches that token to outgoing requests and, when the server answers 401,
// performs a single silent refresh before replaying the request once. When
// the refresh itself is rejected the session is cleared and the caller is
// told to sign in again through OnReauthRequired and ErrReauthRequired.
//
// Client wraps the HTTP contract of the service (register, login, logout,
// profile) and keeps the refresh cookie in a cookie jar.
package authclient
