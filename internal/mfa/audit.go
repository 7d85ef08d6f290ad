package mfa

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/metrics"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// auditPayloadLimit bounds the stored request payload in bytes.
const auditPayloadLimit = 1024

var redactedKeys = map[string]struct{}{
	"password": {}, "mfa_code": {}, "code": {}, "token": {}, "mfa_token": {},
}

// audit records a login attempt. Failures to write are logged, never returned.
func (s *Service) audit(ctx context.Context, userID *uint64, outcome string, cause error, req LoginRequest) {
	metrics.LoginTotal.WithLabelValues(outcome).Inc()

	reason := ""
	if cause != nil {
		reason = "error"
		if typed, ok := pwerrors.As(cause); ok && typed.Code() != "" {
			reason = typed.Code()
		}
	}
	entry := models.LoginAudit{
		UserID:   userID,
		Outcome:  outcome,
		Reason:   reason,
		Path:     req.Path,
		ClientIP: req.ClientIP,
		Payload:  auditPayload(req.Payload),
	}
	fields := log.Fields{"outcome": outcome, "path": req.Path, "client_ip": req.ClientIP}
	if userID != nil {
		fields["user_id"] = *userID
	}
	if reason != "" {
		fields["reason"] = reason
	}
	log.WithFields(fields).Info("login attempt")

	if errCreate := s.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		log.WithError(errCreate).Error("write login audit failed")
	}
}

// AuditRejected records a failed attempt refused before the state machine
// ran, e.g. an undecodable request body.
func (s *Service) AuditRejected(ctx context.Context, cause error, req LoginRequest) {
	s.audit(ctx, nil, models.LoginOutcomeFailed, cause, req)
}

// auditPayload redacts secrets and truncates the encoded payload.
func auditPayload(payload map[string]any) datatypes.JSON {
	clean := make(map[string]any, len(payload))
	for k, v := range payload {
		if _, secret := redactedKeys[strings.ToLower(k)]; secret {
			clean[k] = "****"
			continue
		}
		clean[k] = v
	}
	raw, errEncode := json.Marshal(clean)
	if errEncode != nil {
		return datatypes.JSON(`{}`)
	}
	if len(raw) <= auditPayloadLimit {
		return raw
	}
	truncated, _ := json.Marshal(map[string]string{"truncated": string(raw[:auditPayloadLimit])})
	return truncated
}
