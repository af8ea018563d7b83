// Package services – CommunicationService
//
// Home-screen announcements and the app-update banner. Announcements come
// from the communications table; the update banner is operator-configured
// through the environment, matching how the gym staff used to edit a row by
// hand when a new app build shipped.

package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/config"
	"github.com/liftpisa/go-booking-backend/internal/domain"
	"github.com/liftpisa/go-booking-backend/internal/repo"
)

// UpdateInfo is the getAppUpdateInfo payload. The client compares
// LatestVersion against its own build and decides whether to prompt.
type UpdateInfo struct {
	UpdateAvailable bool   `json:"updateAvailable"`
	LatestVersion   string `json:"latestVersion,omitempty"`
	ExpoLink        string `json:"expoLink,omitempty"`
	Mandatory       bool   `json:"mandatory"`
}

// CommunicationService serves announcements and update metadata.
type CommunicationService struct {
	DB     *gorm.DB
	Update config.UpdateConfig

	// Now is the clock; tests override it. Nil means time.Now.
	Now func() time.Time
}

func (s *CommunicationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Active returns the announcements currently visible on the home screen.
func (s *CommunicationService) Active(ctx context.Context) ([]domain.Communication, error) {
	return repo.ListActiveCommunications(ctx, s.DB, s.now())
}

// AppUpdateInfo returns the update banner for a client running the given
// build. No latest version configured means no update is advertised; a
// client that does not report its version is prompted whenever a latest
// version exists.
func (s *CommunicationService) AppUpdateInfo(currentVersion string) UpdateInfo {
	latest := s.Update.LatestVersion
	available := latest != ""
	if available && currentVersion != "" {
		available = versionLess(currentVersion, latest)
	}
	return UpdateInfo{
		UpdateAvailable: available,
		LatestVersion:   latest,
		ExpoLink:        s.Update.ExpoLink,
		Mandatory:       s.Update.Mandatory,
	}
}

// versionLess compares dotted numeric versions segment by segment, so that
// "1.9.0" < "1.10.0". A missing segment counts as zero; non-numeric
// segments compare as zero, which keeps odd inputs from forcing a prompt.
func versionLess(a, b string) bool {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an != bn {
			return an < bn
		}
	}
	return false
}
