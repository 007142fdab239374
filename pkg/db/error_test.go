package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", gorm.ErrDuplicatedKey, true},
		{"postgres", errors.New(`ERROR: duplicate key value violates unique constraint "uq_alerts_active_device_type" (SQLSTATE 23505)`), true},
		{"mysql", errors.New("Error 1062: Duplicate entry 'SOL-1-high_voltage' for key 'uq_alerts_active_device_type'"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: alerts.device_id, alerts.alert_type"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}
