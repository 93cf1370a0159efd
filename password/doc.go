// Package password hashes and verifies user passwords with Argon2id.
//
// # Output format
//
// Digests are encoded as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash segments use unpadded standard base64. Every call to
// [Argon2.Hash] draws a fresh salt from crypto/rand.
//
// [Argon2.Verify] never returns an error: a malformed or foreign digest simply
// does not match. [Argon2.NeedsUpgrade] lets the caller re-hash on the next
// successful login when stored parameters are weaker than the configured ones.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Length and content policy
// for new passwords is enforced by the Engine.
package password
