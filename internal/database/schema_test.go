package database

import (
	"testing"

	"inkwell/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid in development", config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: "hybrid"}, true, true, false},
		{"hybrid in production", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"empty mode defaults to hybrid", config.Config{DBDriver: "postgres", Env: "production"}, true, false, false},
		{"sql only", config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto in development", config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: " AUTO "}, false, true, false},
		{"auto refused in staging", config.Config{DBDriver: "postgres", Env: "staging", DBSchemaMode: "auto"}, false, false, true},
		{"sqlite always auto", config.Config{DBDriver: "sqlite", Env: "production", DBSchemaMode: "sql"}, false, true, false},
		{"unknown mode", config.Config{DBDriver: "postgres", DBSchemaMode: "magic"}, false, false, true},
		{"unknown mode on sqlite", config.Config{DBDriver: "sqlite", DBSchemaMode: "magic"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			plan, err := PlanSchema(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.SQL)
			assert.Equal(t, tt.wantAuto, plan.Auto)
			assert.NotEmpty(t, plan.Mode)
		})
	}
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	all := GetMigrations()
	if assert.NotEmpty(t, all) {
		assert.Equal(t, 1, all[0].Version)
		assert.Equal(t, "init", all[0].Name)
		assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS posts")
		assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS posts")
	}
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}
