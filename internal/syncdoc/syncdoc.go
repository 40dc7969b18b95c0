package syncdoc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"classcodego/internal/crdt"
	"classcodego/internal/services/room"
)

// Run mirrors every live room's document full state into Postgres on a fixed
// interval, so a crashed instance loses at most one interval of edits.
func Run(ctx context.Context, docs *crdt.Registry, svc room.IRoomService, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				syncOnce(ctx, docs, svc)
			}
		}
	}()
}

func syncOnce(ctx context.Context, docs *crdt.Registry, svc room.IRoomService) {
	for _, roomID := range docs.RoomIDs() {
		state := docs.FullState(roomID)
		if len(state) == 0 {
			continue // doc evicted between snapshot and encode
		}
		if err := svc.SaveDocumentState(ctx, roomID, state); err != nil {
			zap.L().Error("syncdoc.upsert", zap.String("room", roomID), zap.Error(err))
		}
	}
}
