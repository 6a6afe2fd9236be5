// Package companies implements tenants. Membership is derived from the users
// table; the store also serves the usage meter's subject-to-company lookup.
package companies
