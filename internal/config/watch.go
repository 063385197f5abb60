package config

import (
	"context"
	"os"
	"time"

	"hotelbook/internal/metrics"

	"github.com/rs/zerolog"
)

// WatchRoomTypes loads room_types.yaml, calls onUpdate with it, then polls the
// file and calls onUpdate again after every valid edit. An edit that fails to
// load is logged and counted, and the previous catalog stays in effect until
// the file is fixed.
func WatchRoomTypes(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*RoomTypesConfig)) error {
	if path == "" {
		path = "configs/room_types.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := logger.With().Str("component", "catalog").Str("path", path).Logger()

	cfg, err := LoadRoomTypesConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		// Set while the file on disk is broken so each bad edit is reported once.
		var failedMod time.Time
		statFailing := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					if !statFailing {
						log.Error().Err(err).Msg("room types file unreadable, keeping current catalog")
						metrics.IncCatalogReload("stat_error")
						statFailing = true
					}
					continue
				}
				if statFailing {
					log.Info().Msg("room types file readable again")
					statFailing = false
				}
				mod := info.ModTime()
				if !mod.After(lastMod) || mod.Equal(failedMod) {
					continue
				}
				cfg, err := LoadRoomTypesConfig(path)
				if err != nil {
					log.Error().Err(err).Time("modified", mod).Msg("room types reload rejected, keeping current catalog")
					metrics.IncCatalogReload("invalid")
					failedMod = mod
					continue
				}
				lastMod = mod
				failedMod = time.Time{}
				metrics.IncCatalogReload("ok")
				log.Info().Int("room_types", len(cfg.RoomTypes)).Msg("room types reloaded")
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
