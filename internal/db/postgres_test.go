package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"patients", "staff", "beds", "shifts", "prescriptions", "medication_administrations"} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, Schema(), "patient_id TEXT        UNIQUE")
}
