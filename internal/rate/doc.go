// Package rate implements Redis-backed login throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// namespaced by the configured prefix:
//   - <prefix>:login:u:<username>  failed attempts per username
//   - <prefix>:login:ip:<ip>       failed attempts per client IP
//
// After MaxLoginAttempts failures inside the window, CheckLogin rejects
// further attempts until the key expires or a successful login resets it.
package rate
