package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/andygrunwald/fuelprices/internal/models"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		FuelTypes:     make(map[models.FuelType]models.FetchStatus),
		Stores:        make(map[string]models.StoreStatus),
	}

	if sched := s.deps.Scheduler; sched != nil {
		response.SchedulerRunning = sched.IsRunning()
		response.LastFetchRunAt = sched.LastRunAt()
		if next := sched.NextRunAt(); !next.IsZero() {
			response.NextFetchAt = &next
		}
	}

	if s.deps.Fetcher != nil {
		for ft, status := range s.deps.Fetcher.Status() {
			response.FuelTypes[ft] = status
		}
	}

	for name, store := range s.deps.Stores {
		status := s.storeStatus(ctx, store)
		if !status.Connected {
			response.Status = "degraded"
		}
		response.Stores[name] = status
	}

	if s.hostStats != nil {
		system, err := s.hostStats(ctx)
		if err != nil {
			s.logger.Debug().Err(err).Msg("failed to read host stats")
		} else {
			response.System = system
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) storeStatus(ctx context.Context, store Store) models.StoreStatus {
	status := models.StoreStatus{Driver: store.Driver, Connected: true}
	if store.Pinger == nil {
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Pinger.Ping(ctx); err != nil {
		msg := err.Error()
		status.Connected = false
		status.Error = &msg
	}
	return status
}

func hostStats(ctx context.Context) (*models.SystemStatus, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SystemStatus{
		Hostname:      info.Hostname,
		UptimeSeconds: info.Uptime,
		MemUsedPct:    vm.UsedPercent,
		Load1:         avg.Load1,
	}, nil
}
