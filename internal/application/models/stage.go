package models

import (
	"strings"

	dErrors "readykids/pkg/domain-errors"
)

// Stage is a position in the registration pipeline.
type Stage string

const (
	StageNew           Stage = "new"
	StageFormSubmitted Stage = "form-submitted"
	StageChecks        Stage = "checks"
	StageReview        Stage = "review"
	StageApproved      Stage = "approved"
	StageBlocked       Stage = "blocked"
	StageRegistered    Stage = "registered"
)

// Stages lists every valid stage in pipeline order.
var Stages = []Stage{
	StageNew,
	StageFormSubmitted,
	StageChecks,
	StageReview,
	StageApproved,
	StageBlocked,
	StageRegistered,
}

func (s Stage) IsValid() bool {
	for _, v := range Stages {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStage returns a validation error naming the allowed values when s is
// not a known stage.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		names := make([]string, len(Stages))
		for i, v := range Stages {
			names[i] = string(v)
		}
		return "", dErrors.New(dErrors.CodeValidation, "Invalid stage: must be one of "+strings.Join(names, ", "))
	}
	return stage, nil
}

// TimelineType classifies a timeline entry.
type TimelineType string

const (
	TimelineAction   TimelineType = "action"
	TimelineComplete TimelineType = "complete"
	TimelineAlert    TimelineType = "alert"
	TimelineNote     TimelineType = "note"
)

var TimelineTypes = []TimelineType{TimelineAction, TimelineComplete, TimelineAlert, TimelineNote}

func (t TimelineType) IsValid() bool {
	for _, v := range TimelineTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseTimelineType defaults an empty type to action.
func ParseTimelineType(s string) (TimelineType, error) {
	if s == "" {
		return TimelineAction, nil
	}
	typ := TimelineType(s)
	if !typ.IsValid() {
		names := make([]string, len(TimelineTypes))
		for i, v := range TimelineTypes {
			names[i] = string(v)
		}
		return "", dErrors.New(dErrors.CodeValidation, "Invalid timeline type: must be one of "+strings.Join(names, ", "))
	}
	return typ, nil
}
