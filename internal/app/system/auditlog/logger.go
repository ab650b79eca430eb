// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Modes for Config.Mode.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	Mode string
}

// Logger records administrative actions. It writes to MongoDB (via
// audit.Store) and to structured logs (via zap). A failed write is logged
// and counted but never returned: the action it describes has already happened.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if config.Mode == "" {
		config.Mode = ModeAll
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the entry to zap with consistent structure.
func (l *Logger) logToZap(e audit.Entry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("target_type", e.TargetType),
		zap.String("target_id", e.TargetID),
		zap.String("admin_uid", e.Admin.UID),
	}
	if e.Admin.Email != "" {
		fields = append(fields, zap.String("admin_email", e.Admin.Email))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit entry", fields...)
}

// Record writes e according to the configured mode.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Record(ctx context.Context, e audit.Entry) {
	if l == nil {
		return
	}
	mode := l.config.Mode
	if mode == ModeOff {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(e)
	}

	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, e); err != nil {
			metrics.AuditWriteFailures.Inc()
			l.zapLog.Error("failed to store audit entry",
				zap.Error(err),
				zap.String("action", e.Action),
				zap.String("target_type", e.TargetType),
				zap.String("target_id", e.TargetID),
				zap.String("admin_uid", e.Admin.UID),
			)
		}
	}
}

// --- User management ---

// UserCreated records create_user.
func (l *Logger) UserCreated(ctx context.Context, actor audit.Actor, userID, name, phone string, isAdmin bool) {
	isAdminStr := "false"
	if isAdmin {
		isAdminStr = "true"
	}
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     audit.ActionCreateUser,
		TargetType: audit.TargetUser,
		TargetID:   userID,
		Details: map[string]string{
			"userName": name,
			"phone":    phone,
			"isAdmin":  isAdminStr,
		},
	})
}

// PasswordReset records reset_password.
func (l *Logger) PasswordReset(ctx context.Context, actor audit.Actor, userID, phone string) {
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     audit.ActionResetPassword,
		TargetType: audit.TargetUser,
		TargetID:   userID,
		Details:    map[string]string{"phone": phone},
	})
}

// UserDeleted records delete_user.
func (l *Logger) UserDeleted(ctx context.Context, actor audit.Actor, userID, name, phone string) {
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     audit.ActionDeleteUser,
		TargetType: audit.TargetUser,
		TargetID:   userID,
		Details: map[string]string{
			"userName": name,
			"phone":    phone,
		},
	})
}

// AdminPromoted records promote_admin.
func (l *Logger) AdminPromoted(ctx context.Context, actor audit.Actor, userID, name, phone string) {
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     audit.ActionPromoteAdmin,
		TargetType: audit.TargetUser,
		TargetID:   userID,
		Details: map[string]string{
			"userName":  name,
			"phone":     phone,
			"newStatus": "admin",
		},
	})
}

// AdminDemoted records demote_admin.
func (l *Logger) AdminDemoted(ctx context.Context, actor audit.Actor, userID, name, phone string) {
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     audit.ActionDemoteAdmin,
		TargetType: audit.TargetUser,
		TargetID:   userID,
		Details: map[string]string{
			"userName":  name,
			"phone":     phone,
			"newStatus": "user",
		},
	})
}

// --- E-learning ---

// ELearningCreated records create_elearning.
func (l *Logger) ELearningCreated(ctx context.Context, actor audit.Actor, id, title string, hasMedia bool) {
	l.elearning(ctx, actor, audit.ActionCreateELearning, id, title, hasMedia)
}

// ELearningUpdated records update_elearning.
func (l *Logger) ELearningUpdated(ctx context.Context, actor audit.Actor, id, title string, hasMedia bool) {
	l.elearning(ctx, actor, audit.ActionUpdateELearning, id, title, hasMedia)
}

// ELearningDeleted records delete_elearning.
func (l *Logger) ELearningDeleted(ctx context.Context, actor audit.Actor, id, title string) {
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     audit.ActionDeleteELearning,
		TargetType: audit.TargetELearning,
		TargetID:   id,
		Details:    map[string]string{"title": title},
	})
}

func (l *Logger) elearning(ctx context.Context, actor audit.Actor, action, id, title string, hasMedia bool) {
	media := "false"
	if hasMedia {
		media = "true"
	}
	l.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     action,
		TargetType: audit.TargetELearning,
		TargetID:   id,
		Details: map[string]string{
			"title":    title,
			"hasMedia": media,
		},
	})
}
