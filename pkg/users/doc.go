// Package users implements user accounts: registration, credential
// verification, profile and role management, and soft deletion. The store is
// the system of record that the principal resolver reads current roles from.
package users
