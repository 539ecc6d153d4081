package assetcore

import (
	"context"
	"errors"

	"github.com/darkbcx/asset-core2/internal/audit"
)

// Public aliases so callers can supply and consume sinks without
// importing the internal package.
type (
	AuditEvent     = audit.Event
	AuditSink      = audit.Sink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
)

// Re-exported sink constructors.
var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
)

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshRateLimited   = "refresh_rate_limited"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventTenantSwitch         = "tenant_switch"
	auditEventLogout               = "logout"
)

type auditErrCode string

const (
	auditErrInvalidCredentials auditErrCode = "invalid_credentials"
	auditErrAccountInactive    auditErrCode = "account_inactive"
	auditErrRateLimited        auditErrCode = "rate_limited"
	auditErrRefreshExpired     auditErrCode = "refresh_expired"
	auditErrRefreshInvalid     auditErrCode = "refresh_invalid"
	auditErrRefreshReuse       auditErrCode = "refresh_reuse"
	auditErrForbidden          auditErrCode = "forbidden"
	auditErrNotATenantUser     auditErrCode = "not_a_tenant_user"
	auditErrUnauthenticated    auditErrCode = "unauthenticated"
	auditErrInternal           auditErrCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	tenantID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType:  eventType,
		IdentityID: identityID,
		TenantID:   tenantID,
		TokenID:    tokenID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) auditErrCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrReuseDetected):
		return auditErrRefreshReuse
	case errors.Is(err, ErrRefreshExpired):
		return auditErrRefreshExpired
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotATenantUser):
		return auditErrNotATenantUser
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	default:
		return auditErrInternal
	}
}
