package recorder

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ChatRow is the chat_messages table.
type ChatRow struct {
	ID           uint      `gorm:"primaryKey"`
	CreatedAt    time.Time `gorm:"index:idx_chat_conv"`
	Conversation string    `gorm:"index:idx_chat_conv;size:36"`
	Symbol       string    `gorm:"size:12"`
	MessageID    int
	User         string `gorm:"size:32"`
	Text         string
	ShownTime    string `gorm:"size:5"`
}

func (ChatRow) TableName() string { return "chat_messages" }

// PredictionRow is the predictions table.
type PredictionRow struct {
	ID              uint      `gorm:"primaryKey"`
	CreatedAt       time.Time `gorm:"index:idx_pred_symbol"`
	Symbol          string    `gorm:"index:idx_pred_symbol;size:12"`
	Timeframe       string    `gorm:"size:8"`
	Trend           string    `gorm:"size:8"`
	Confidence      string    `gorm:"size:8"`
	TargetPrice     string    `gorm:"size:16"`
	SupportLevel    string    `gorm:"size:16"`
	ResistanceLevel string    `gorm:"size:16"`
	Source          string    `gorm:"size:16"`
}

func (PredictionRow) TableName() string { return "predictions" }

// FetchRow is the fetch_log table.
type FetchRow struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	Symbol     string    `gorm:"size:12"`
	Interval   string    `gorm:"size:8"`
	Source     string    `gorm:"size:16"`
	Outcome    string    `gorm:"size:8"`
	Bars       int
	DurationMS int64
	Error      string
}

func (FetchRow) TableName() string { return "fetch_log" }

// GormRecorder persists history to Postgres through gorm.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder connects to the Postgres dsn and migrates the schema.
func NewGormRecorder(dsn string) (*GormRecorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&ChatRow{}, &PredictionRow{}, &FetchRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Msg("postgres recorder connected")
	return &GormRecorder{db: db}, nil
}

func (r *GormRecorder) RecordChat(evt *ChatEvent) error {
	m := evt.Message
	return r.db.Create(&ChatRow{
		Conversation: evt.Conversation,
		Symbol:       evt.Symbol,
		MessageID:    m.ID,
		User:         m.User,
		Text:         m.Text,
		ShownTime:    m.Time,
	}).Error
}

func (r *GormRecorder) RecordPrediction(evt *PredictionEvent) error {
	p := evt.Prediction
	return r.db.Create(&PredictionRow{
		Symbol:          evt.Symbol,
		Timeframe:       p.Timeframe,
		Trend:           string(p.Trend),
		Confidence:      p.Confidence,
		TargetPrice:     p.TargetPrice,
		SupportLevel:    p.SupportLevel,
		ResistanceLevel: p.ResistanceLevel,
		Source:          string(p.Source),
	}).Error
}

func (r *GormRecorder) RecordFetch(evt *FetchEvent) error {
	return r.db.Create(&FetchRow{
		Symbol:     evt.Symbol,
		Interval:   evt.Interval,
		Source:     evt.Source,
		Outcome:    evt.Outcome(),
		Bars:       evt.Bars,
		DurationMS: evt.Duration.Milliseconds(),
		Error:      evt.errText(),
	}).Error
}

func (r *GormRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	log.Info().Msg("closing postgres recorder")
	return sqlDB.Close()
}
