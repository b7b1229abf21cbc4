package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusWithoutChecks(t *testing.T) {
	report := NewService().Status(context.Background())
	assert.True(t, report.OK)
	assert.Empty(t, report.Checks)
}

func TestStatusReportsFailingCheck(t *testing.T) {
	svc := NewService()
	svc.Register("db", func(context.Context) error { return nil })
	svc.Register("redis", func(context.Context) error { return errors.New("connection refused") })
	svc.Register("ignored", nil)

	report := svc.Status(context.Background())
	assert.False(t, report.OK)
	assert.Equal(t, map[string]string{"db": "ok", "redis": "connection refused"}, report.Checks)
}
