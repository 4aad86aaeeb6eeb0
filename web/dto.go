package web

import (
	"encoding/json"
	"regexp"

	"github.com/adhocore/gronx"
	"github.com/go-playground/validator/v10"

	"github.com/dagwatch/dagwatch/core"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]{4,32}$`)

// newValidator builds the request validator with the shared name rule:
// alphanumeric plus underscore, 4 to 32 characters.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("resourcename", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	return v
}

type channelCreateRequest struct {
	Name          string          `json:"name" validate:"required,resourcename"`
	ProviderType  string          `json:"provider_type" validate:"required"`
	Configuration json.RawMessage `json:"configuration" validate:"required"`
}

type channelUpdateRequest struct {
	ProviderType  string          `json:"provider_type" validate:"required"`
	Configuration json.RawMessage `json:"configuration" validate:"required"`
}

type jobConfigCreateRequest struct {
	AppName    string                `json:"app_name" validate:"required,resourcename"`
	JobName    string                `json:"job_name" validate:"required,resourcename"`
	Schedule   *string               `json:"schedule"`
	ZoneID     *string               `json:"zone_id"`
	Enabled    bool                  `json:"enabled"`
	Stages     []core.JobStageConfig `json:"stages" validate:"required,min=1"`
	ChannelIDs string                `json:"channel_ids"`
}

type jobConfigUpdateRequest struct {
	Schedule   *string               `json:"schedule"`
	ZoneID     *string               `json:"zone_id"`
	Enabled    bool                  `json:"enabled"`
	Stages     []core.JobStageConfig `json:"stages" validate:"required,min=1"`
	ChannelIDs string                `json:"channel_ids"`
}

type stageUpdateRequest struct {
	StageName string `json:"stage_name" validate:"required"`
	EventType string `json:"event_type" validate:"required,oneof=started completed failed"`
	Message   string `json:"message"`
}

type settingsUpdateRequest struct {
	SuccessRetentionDays  *int    `json:"success_retention_days"`
	FailureRetentionDays  *int    `json:"failure_retention_days"`
	MaintenanceMode       *bool   `json:"maintenance_mode"`
	DefaultChannels       *string `json:"default_channels"`
	ErrorChannels         *string `json:"error_channels"`
	MaxStageDurationHours *int    `json:"max_stage_duration_hours"`
}

// checkConfigSemantics enforces the config invariants that field-level
// validation cannot express: a schedule needs a zone and must parse, zones
// must resolve, stage names are unique, and every stage carries at least
// one non-negative deadline offset.
func checkConfigSemantics(schedule, zoneID *string, stages []core.JobStageConfig) error {
	if schedule != nil && zoneID == nil {
		return core.BadRequestf("zone_id is required when schedule is set")
	}
	if schedule != nil && !gronx.New().IsValid(*schedule) {
		return core.BadRequestf("invalid cron expression: %s", *schedule)
	}
	if zoneID != nil {
		if _, err := core.LoadZone(*zoneID); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(stages))
	for _, stage := range stages {
		if !namePattern.MatchString(stage.Name) {
			return core.BadRequestf("invalid stage name: %s", stage.Name)
		}
		if seen[stage.Name] {
			return core.BadRequestf("duplicate stage name: %s", stage.Name)
		}
		seen[stage.Name] = true
		if stage.Start == nil && stage.Complete == nil {
			return core.BadRequestf("stage %s must set at least one of start/complete", stage.Name)
		}
		if stage.Start != nil && *stage.Start < 0 {
			return core.BadRequestf("stage %s has a negative start offset", stage.Name)
		}
		if stage.Complete != nil && *stage.Complete < 0 {
			return core.BadRequestf("stage %s has a negative complete offset", stage.Name)
		}
	}
	return nil
}

// validationReasons flattens validator errors into field:reason pairs for
// the fail envelope.
func validationReasons(err error) map[string]string {
	reasons := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			reasons[fe.Field()] = "failed validation rule: " + fe.Tag()
		}
		return reasons
	}
	reasons["request"] = err.Error()
	return reasons
}
