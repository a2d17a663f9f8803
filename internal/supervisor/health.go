package supervisor

import (
	"time"

	"podscribe/internal/logging"
)

func (s *Supervisor) healthLoop() {
	defer s.healthWG.Done()
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.runCtx.Done():
			return
		case <-ticker.C:
			s.CheckHealth()
		}
	}
}

// CheckHealth replaces dead workers, requeues the jobs they had claimed, and
// starts workers for slots whose earlier launch failed. It returns the number
// of workers started.
func (s *Supervisor) CheckHealth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || !s.wantPool {
		return 0
	}
	for len(s.procs) < s.workers {
		s.procs = append(s.procs, nil)
	}
	replaced := 0
	for slot, proc := range s.procs {
		if proc != nil && alive(proc) {
			continue
		}
		deadID := ""
		if proc != nil {
			deadID = proc.WorkerID()
			s.logger.Warn("worker died; replacing",
				logging.String(logging.FieldEventType, "worker_replaced"),
				logging.String(logging.FieldWorkerID, deadID),
				logging.Int("slot", slot+1),
				logging.String(logging.FieldErrorHint, "check podscribe.log for the worker's last messages"))
		} else {
			s.logger.Info("starting missing worker",
				logging.String(logging.FieldEventType, "worker_slot_filled"),
				logging.Int("slot", slot+1))
		}

		if deadID != "" && s.requeueInFlight {
			ids, err := s.store.RequeueClaimedBy(s.runCtx, deadID)
			if err != nil {
				s.logger.Error("requeue of dead worker's jobs failed",
					logging.String(logging.FieldEventType, "jobs_requeue_failed"),
					logging.String(logging.FieldWorkerID, deadID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "restart the daemon to requeue in-flight jobs"))
			} else if len(ids) > 0 {
				s.logger.Info("requeued jobs from dead worker",
					logging.String(logging.FieldEventType, "jobs_requeued"),
					logging.String(logging.FieldWorkerID, deadID),
					logging.Int("count", len(ids)))
			}
		}

		fresh, err := s.launchLocked(slot)
		if err != nil {
			s.procs[slot] = nil
			continue
		}
		s.procs[slot] = fresh
		if deadID != "" {
			s.restarts++
		}
		replaced++
	}
	return replaced
}
