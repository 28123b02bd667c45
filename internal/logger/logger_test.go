package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storefront/internal/config"
)

func TestNew(t *testing.T) {
	log := New(config.Log{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = New(config.Log{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestGormLoggerSkipsMissingRows(t *testing.T) {
	log, hook := test.NewNullLogger()
	gl := Gorm(log)
	query := func() (string, int64) { return "SELECT 1", 0 }

	gl.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, hook.AllEntries())

	gl.Trace(context.Background(), time.Now(), query, errors.New("disk full"))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "SELECT 1", hook.LastEntry().Data["sql"])
	hook.Reset()

	gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "slow query", hook.LastEntry().Message)
	hook.Reset()

	gl.Trace(context.Background(), time.Now(), query, nil)
	assert.Empty(t, hook.AllEntries())

	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("disk full"))
	assert.Empty(t, hook.AllEntries())
}
