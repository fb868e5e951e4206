package dashboard

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mendtool/mend/internal/conflict"
	"github.com/mendtool/mend/internal/engine"
)

// Handler bridges engine events to dashboard broadcasts and tracks
// remaining-work statistics across a merge session.
//
// OnScan is the only entry point the mend CLI drives: `mend dashboard`
// polls the repository and pushes full snapshots, so resolutions made by
// other processes surface on the next scan. OnResolution exists for
// embedders running the engine and the dashboard in one process, where
// each resolution can be broadcast the moment it happens instead of
// waiting for a poll.
type Handler struct {
	server *Server
	log    *slog.Logger

	stats StatsData
}

// NewHandler creates a handler connected to a dashboard server.
func NewHandler(server *Server, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		server: server,
		log:    log,
	}
}

// OnScan broadcasts a full scan snapshot and resets the statistics.
func (h *Handler) OnScan(files []*conflict.File) {
	data := ScanData{Files: make([]ScanFile, 0, len(files))}

	for _, f := range files {
		sf := ScanFile{Path: f.Path, Regions: len(f.Regions)}
		if f.Err != nil {
			sf.Error = f.Err.Error()
		}
		data.Files = append(data.Files, sf)
		data.Regions += len(f.Regions)
	}

	h.stats = StatsData{
		FilesRemaining:   len(files),
		RegionsRemaining: data.Regions,
	}

	h.server.SetSnapshot(data)
	h.broadcast(MessageTypeScan, data)
	h.broadcastStats()
}

// OnResolution broadcasts one resolution outcome. The updated file tells
// whether a region or the whole file was cleared. Intended for embedders
// sharing a process with the engine; the polling CLI reports the same
// state change through its next OnScan.
func (h *Handler) OnResolution(r engine.Resolution, updated *conflict.File) {
	if r.RegionStart > 0 {
		h.stats.RegionsRemaining--
		h.broadcast(MessageTypeRegionResolved, RegionResolvedData{
			Path:      r.Path,
			Method:    r.Method,
			Side:      r.Side,
			StartLine: r.RegionStart,
			EndLine:   r.RegionEnd,
			Remaining: len(updated.Regions),
		})
	}

	if updated != nil && updated.Resolved {
		h.stats.FilesRemaining--
		h.stats.FilesResolved++
		h.broadcast(MessageTypeFileResolved, FileResolvedData{
			Path:   r.Path,
			Method: r.Method,
		})
	}

	h.broadcastStats()
}

// Stats returns the current statistics.
func (h *Handler) Stats() StatsData {
	return h.stats
}

func (h *Handler) broadcastStats() {
	h.broadcast(MessageTypeStats, h.stats)
}

func (h *Handler) broadcast(t MessageType, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Error("failed to marshal dashboard data", "type", t, "error", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      t,
		Timestamp: time.Now(),
		Data:      payload,
	})
}
