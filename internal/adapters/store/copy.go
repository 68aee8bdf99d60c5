package store

import (
	"context"
	"fmt"

	"tg-gate-bot/internal/domain"
)

// CopyStats — сколько записей перенесено.
type CopyStats struct {
	Users    int
	Channels int
	Items    int
}

// Copy переносит все три коллекции из src в dst целиком, перезаписывая dst.
func Copy(ctx context.Context, src, dst domain.DocumentStore) (CopyStats, error) {
	var stats CopyStats

	users, err := src.LoadUsers(ctx)
	if err != nil {
		return stats, fmt.Errorf("чтение users: %w", err)
	}
	channels, err := src.LoadChannels(ctx)
	if err != nil {
		return stats, fmt.Errorf("чтение channels: %w", err)
	}
	catalog, err := src.LoadCatalog(ctx)
	if err != nil {
		return stats, fmt.Errorf("чтение catalog: %w", err)
	}

	if err := dst.SaveUsers(ctx, users); err != nil {
		return stats, err
	}
	stats.Users = len(users)
	if err := dst.SaveChannels(ctx, channels); err != nil {
		return stats, err
	}
	stats.Channels = len(channels)
	if err := dst.SaveCatalog(ctx, catalog); err != nil {
		return stats, err
	}
	stats.Items = len(catalog)
	return stats, nil
}
