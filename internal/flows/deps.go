package flows

import "context"

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register  RegisterDeps
	Login     LoginDeps
	Authorize AuthorizeDeps
	Logout    LogoutDeps
}

// AuditFunc emits one audit record. userID is zero when the subject is
// unknown; err is nil on success.
type AuditFunc func(ctx context.Context, event string, success bool, userID int64, username, tokenID string, err error, metadata func() map[string]string)

// WarnFunc logs a backend failure that is hidden from the caller.
type WarnFunc func(msg string, err error)

func noopMetric(int) {}

func noopAudit(context.Context, string, bool, int64, string, string, error, func() map[string]string) {
}

func noopWarn(string, error) {}
