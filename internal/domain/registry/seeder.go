package registry

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"github.com/GriffinCanCode/applaunchd/internal/shared/utils"
	"go.uber.org/zap"
)

// seeder turns supervisor unit files into application records
type seeder struct {
	lister UnitLister
	icons  IconResolver
	logger *zap.Logger
}

func (s *seeder) seed(ctx context.Context, pattern string) []types.AppRecord {
	if s.lister == nil {
		s.logger.Warn("No unit supervisor, registry will be empty")
		return nil
	}

	units, err := s.lister.ListUnits(ctx, pattern)
	if err != nil {
		s.logger.Error("Failed to enumerate application units",
			zap.String("pattern", pattern),
			zap.Error(err))
		return nil
	}

	var loaded, skipped int
	records := make([]types.AppRecord, 0, len(units))
	for _, u := range units {
		unit := filepath.Base(u.Path)

		// Bare template unit, not an instance
		if strings.HasSuffix(unit, "@.service") {
			continue
		}

		id, ok := parseAppID(unit)
		if !ok {
			s.logger.Warn("Skipping unit with unparseable name", zap.String("unit", unit))
			skipped++
			continue
		}
		if err := utils.ValidateAppID(id); err != nil {
			s.logger.Warn("Skipping unit with invalid instance name",
				zap.String("unit", unit),
				zap.Error(err))
			skipped++
			continue
		}

		records = append(records, types.AppRecord{
			ID:       id,
			Name:     s.displayName(ctx, unit, id),
			IconPath: s.icon(ctx, id),
			Unit:     unit,
		})
		loaded++
	}

	s.logger.Debug("Unit enumeration complete",
		zap.Int("loaded", loaded),
		zap.Int("skipped", skipped))
	return records
}

func (s *seeder) displayName(ctx context.Context, unit, id string) string {
	desc, err := s.lister.Describe(ctx, unit)
	if err != nil {
		s.logger.Warn("Failed to read unit description, using id",
			zap.String("unit", unit),
			zap.Error(err))
		return id
	}
	if desc == "" {
		s.logger.Warn("Unit has no description, using id", zap.String("unit", unit))
		return id
	}
	return desc
}

func (s *seeder) icon(ctx context.Context, id string) string {
	if s.icons == nil {
		return ""
	}
	return s.icons.Resolve(ctx, id)
}

// parseAppID extracts the instance name: the text between the last '@'
// and the last '.' of a unit name such as agl-app@radio.service.
func parseAppID(unit string) (string, bool) {
	at := strings.LastIndexByte(unit, '@')
	dot := strings.LastIndexByte(unit, '.')
	if at < 0 || dot < 0 || dot <= at+1 {
		return "", false
	}
	return unit[at+1 : dot], true
}
