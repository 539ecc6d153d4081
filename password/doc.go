// Package password implements password hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the cost parameters out of the stored hash, so
// parameter upgrades are transparent: [Argon2.NeedsUpgrade] reports
// when a stored hash is weaker than the current configuration and the
// caller can rehash on the next successful login.
//
// This package owns hashing and verification only. It never stores,
// retrieves, or logs credentials, and imports nothing else from this
// module.
package password
