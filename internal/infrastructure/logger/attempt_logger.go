package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"gorm.io/gorm"
)

// VerificationAttemptRecord is one row of the verification audit trail.
type VerificationAttemptRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Reference    string `gorm:"index"`
	Stage        string
	Trigger      string
	RemoteStatus string
	Outcome      string
	Error        string
	RawResponse  string `gorm:"type:jsonb"`
	Timestamp    time.Time
}

func (VerificationAttemptRecord) TableName() string {
	return "verification_attempts"
}

type PGAttemptLogger struct {
	db *gorm.DB
}

func NewPGAttemptLogger(db *gorm.DB) *PGAttemptLogger {
	return &PGAttemptLogger{db: db}
}

func (l *PGAttemptLogger) LogAttempt(ctx context.Context, attempt domain.VerificationAttempt) error {
	record := VerificationAttemptRecord{
		Reference:    attempt.Reference,
		Stage:        string(stageOf(attempt)),
		Trigger:      string(attempt.Trigger),
		RemoteStatus: string(attempt.RemoteStatus),
		Outcome:      string(attempt.Outcome),
		Error:        attempt.Error,
		Timestamp:    attempt.At,
	}
	if len(attempt.RawResponse) > 0 {
		record.RawResponse = string(attempt.RawResponse)
	} else {
		record.RawResponse = "null"
	}
	return l.db.WithContext(ctx).Create(&record).Error
}

// SlogAttemptLogger writes the audit trail to the structured log when there
// is no SQL database to keep it in.
type SlogAttemptLogger struct {
	logger *slog.Logger
}

func NewSlogAttemptLogger(logger *slog.Logger) *SlogAttemptLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAttemptLogger{logger: logger}
}

func (l *SlogAttemptLogger) LogAttempt(ctx context.Context, attempt domain.VerificationAttempt) error {
	attrs := []any{
		"tx_ref", attempt.Reference,
		"stage", stageOf(attempt),
		"trigger", attempt.Trigger,
		"remote_status", attempt.RemoteStatus,
		"outcome", attempt.Outcome,
	}
	if attempt.Error != "" {
		attrs = append(attrs, "error", attempt.Error)
	}
	l.logger.InfoContext(ctx, "verification attempt", attrs...)
	return nil
}

func stageOf(attempt domain.VerificationAttempt) domain.AttemptStage {
	if attempt.Stage == "" {
		return domain.StageVerify
	}
	return attempt.Stage
}
