// Package permission implements wildcard permission matching and the
// static role tables used for authorization decisions.
//
// Permissions are strings of the form "entity:action". Either side may
// be the wildcard "*", so a grant of "assets:*" covers every action on
// assets and "*:*" covers everything. Matching is structural; there is
// no prefix or pattern matching beyond the two wildcard positions.
//
// Role tables are fail closed: a role name that is not in the table
// grants nothing.
package permission
