// Package auth holds the session layer of the gateway: accounts,
// invitations, credential hashing and the in-memory session table.
//
// Nothing in here speaks HTTP, that lives in auth/api. The flows in this
// package only orchestrate the stores, the hasher and the session table.
//
// Passwords are never kept. Registration stores an argon2id digest of the
// password salted with the process root key, login derives the same digest
// from whatever the user typed and compares both sides. This means the root
// key must never change for the lifetime of an account database, losing
// it makes every stored digest useless.
//
// The root key is read from an environment variable and the variable is
// cleared right after, so child processes never see it.
//
// Login only succeeds for accounts whose email is also present in the
// invitation list. A successful login issues a random opaque token which
// is kept in memory, tokens are lost when the process restarts and users
// must login again. There is no expiry and no refresh, logout is the only
// way to drop a session.
package auth
