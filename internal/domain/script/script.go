// Package script provides the domain model for purchasable script artifacts.
// The entitlement engine only needs the catalog facts that gate issuance:
// whether a script exists, is active, and offers a trial.
package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

// Script represents one purchasable software artifact in the catalog.
type Script struct {
	id                 uint
	sid                string
	name               string
	slug               string
	trialAvailable     bool
	trialDurationHours int
	active             bool
	createdAt          time.Time
	updatedAt          time.Time
}

// NewScript creates a new script catalog entry.
// trialDurationHours of 0 means the engine-wide default applies.
func NewScript(name, slug string, trialAvailable bool, trialDurationHours int, now time.Time) (*Script, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("script name is required")
	}
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("script slug is required")
	}
	if trialDurationHours < 0 {
		return nil, fmt.Errorf("trial duration cannot be negative")
	}

	sid, err := id.NewScriptID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate script SID: %w", err)
	}

	return &Script{
		sid:                sid,
		name:               name,
		slug:               slug,
		trialAvailable:     trialAvailable,
		trialDurationHours: trialDurationHours,
		active:             true,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// Reconstruct rebuilds a Script from persistence.
func Reconstruct(scriptID uint, sid, name, slug string, trialAvailable bool, trialDurationHours int, active bool, createdAt, updatedAt time.Time) (*Script, error) {
	if scriptID == 0 {
		return nil, fmt.Errorf("script ID cannot be zero")
	}
	if name == "" {
		return nil, fmt.Errorf("script name is required")
	}
	return &Script{
		id:                 scriptID,
		sid:                sid,
		name:               name,
		slug:               slug,
		trialAvailable:     trialAvailable,
		trialDurationHours: trialDurationHours,
		active:             active,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}, nil
}

// ID returns the script ID
func (s *Script) ID() uint { return s.id }

// SID returns the external script identifier
func (s *Script) SID() string { return s.sid }

// Name returns the display name
func (s *Script) Name() string { return s.name }

// Slug returns the URL slug
func (s *Script) Slug() string { return s.slug }

// TrialAvailable reports whether the script offers trials
func (s *Script) TrialAvailable() bool { return s.trialAvailable }

// Active reports whether the script is currently purchasable
func (s *Script) Active() bool { return s.active }

// CreatedAt returns when the script was created
func (s *Script) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns when the script was last written
func (s *Script) UpdatedAt() time.Time { return s.updatedAt }

// SetID sets the script ID (only for persistence layer use)
func (s *Script) SetID(scriptID uint) error {
	if s.id != 0 {
		return fmt.Errorf("script ID is already set")
	}
	if scriptID == 0 {
		return fmt.Errorf("script ID cannot be zero")
	}
	s.id = scriptID
	return nil
}

// TrialDuration returns the script-specific trial length, or fallback when the
// script does not override the engine-wide default.
func (s *Script) TrialDuration(fallback time.Duration) time.Duration {
	if s.trialDurationHours > 0 {
		return time.Duration(s.trialDurationHours) * time.Hour
	}
	return fallback
}
