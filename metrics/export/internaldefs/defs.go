package internaldefs

import (
	"github.com/MrEthical07/storeauth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   storeauth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   storeauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: storeauth.MetricRegisterSuccess, Name: "storeauth_register_success_total", Help: "Successful registrations."},
	{ID: storeauth.MetricRegisterDuplicate, Name: "storeauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: storeauth.MetricRegisterInvalid, Name: "storeauth_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: storeauth.MetricLoginSuccess, Name: "storeauth_login_success_total", Help: "Successful login attempts."},
	{ID: storeauth.MetricLoginFailure, Name: "storeauth_login_failure_total", Help: "Failed login attempts."},
	{ID: storeauth.MetricLoginRateLimited, Name: "storeauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: storeauth.MetricPasswordUpgraded, Name: "storeauth_password_upgraded_total", Help: "Password digests re-hashed with stronger parameters."},
	{ID: storeauth.MetricLogout, Name: "storeauth_logout_total", Help: "Tokens revoked by logout."},
	{ID: storeauth.MetricAuthorizeAdmitted, Name: "storeauth_authorize_admitted_total", Help: "Requests admitted by the authorization gate."},
	{ID: storeauth.MetricAuthorizeMissing, Name: "storeauth_authorize_missing_total", Help: "Requests without a token."},
	{ID: storeauth.MetricAuthorizeInvalid, Name: "storeauth_authorize_invalid_total", Help: "Requests with an invalid token."},
	{ID: storeauth.MetricAuthorizeExpired, Name: "storeauth_authorize_expired_total", Help: "Requests with an expired token."},
	{ID: storeauth.MetricAuthorizeRevoked, Name: "storeauth_authorize_revoked_total", Help: "Requests with a revoked token."},
	{ID: storeauth.MetricRevocationUnavailable, Name: "storeauth_revocation_unavailable_total", Help: "Revocation registry failures."},
	{ID: storeauth.MetricStorageUnavailable, Name: "storeauth_storage_unavailable_total", Help: "Credential store failures."},
	{ID: storeauth.MetricRevocationSwept, Name: "storeauth_revocation_swept_total", Help: "Expired revocation entries evicted by the janitor."},
	{ID: storeauth.MetricUserDeleted, Name: "storeauth_user_deleted_total", Help: "Deleted users."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: storeauth.MetricAuthorizeLatency, Name: "storeauth_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds rendered for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is the counter for events dropped by the audit dispatcher.
const AuditDroppedName = "storeauth_audit_dropped_total"

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
