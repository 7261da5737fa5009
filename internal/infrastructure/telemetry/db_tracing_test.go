package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint
	Name string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, nil))
	assert.Nil(t, db.Callback().Query().Get("slowquery:after_query"))
}

func TestRegisterDBTracing_SlowQuery(t *testing.T) {
	sr := setupTestTracer(t)
	core, logs := observer.New(zapcore.WarnLevel)
	db := openSQLite(t)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{
		Enabled:            true,
		DBName:             "bizdocs",
		SlowQueryThreshold: time.Nanosecond,
	}, zap.New(core)))

	ctx, span := StartSpan(context.Background(), "repo.create")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "x"}).Error)
	span.End()

	assert.GreaterOrEqual(t, logs.FilterMessage("Slow query").Len(), 1)

	var sawQuerySpan bool
	for _, s := range sr.Ended() {
		if _, ok := attrValue(s.Attributes(), "db.slow_query"); ok {
			sawQuerySpan = true
		}
	}
	assert.True(t, sawQuerySpan)
}
