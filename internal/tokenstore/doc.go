// Package tokenstore persists the upstream API key used when a client request
// carries no credential of its own.
//
// Three backends implement Store:
//   - EnvStore reads the key from an environment variable and is read-only
//   - FileStore keeps the key in a file readable only by the current user
//   - KeyringStore uses the operating system keyring
//
// Writing an empty key clears the stored key. TokenSource adapts a Store to
// oauth2.TokenSource so the key can be injected by oauth2.Transport:
//
//	store := &tokenstore.KeyringStore{Service: "claudine-bridge", User: "upstream"}
//	transport := &oauth2.Transport{Source: tokenstore.TokenSource(store)}
package tokenstore
