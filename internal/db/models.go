package db

import (
	"encoding/json"
	"time"
)

// RunArtifact maps analysis.run_artifacts. One row per completed pipeline run.
type RunArtifact struct {
	ArtifactID      int64           `gorm:"column:artifact_id;primaryKey;autoIncrement"`
	ArtifactUUID    string          `gorm:"column:artifact_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RunID           string          `gorm:"column:run_id;type:text;not null;unique"`
	CountryCode     string          `gorm:"column:country_code;type:text;not null"`
	CountryName     string          `gorm:"column:country_name;type:text;not null"`
	Query           string          `gorm:"column:query;type:text;not null"`
	HoursWindow     int             `gorm:"column:hours_window;type:integer;not null"`
	RecordsFetched  int             `gorm:"column:records_fetched;type:integer;not null;default:0"`
	RecordsSampled  int             `gorm:"column:records_sampled;type:integer;not null;default:0"`
	ClustersFound   int             `gorm:"column:clusters_found;type:integer;not null;default:0"`
	ClustersMatched int             `gorm:"column:clusters_matched;type:integer;not null;default:0"`
	EventsRelevant  int             `gorm:"column:events_relevant;type:integer;not null;default:0"`
	Payload         json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	StartedAt       time.Time       `gorm:"column:started_at;type:timestamptz;not null"`
	FinishedAt      time.Time       `gorm:"column:finished_at;type:timestamptz;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RunArtifact) TableName() string { return "analysis.run_artifacts" }

func autoMigrateModels() []any {
	return []any{
		&RunArtifact{},
	}
}
