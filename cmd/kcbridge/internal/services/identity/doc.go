// Package identity turns an IdP profile into a provisioned local admin user.
//
// It provides:
//
//   - ResolveLocalRoles: pure translation of realm roles to local role ids
//   - Resolver: fetches a user's realm roles and applies the mapping table
//   - Reconciler: find-or-create of the local account with role refresh
//   - Seeder: idempotent bootstrap of the super-admin mapping
//
// Request Flow:
//
//	Profile → Reconciler.FindOrCreate → Resolver.Resolve → ResolveLocalRoles
//	       ↓
//	   AdminUser (created, updated, or untouched)
//
// Fetching realm roles never fails the login. An unreachable IdP degrades to
// an empty role set, which resolves to the configured default role.
package identity
