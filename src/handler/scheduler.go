package handler

import (
	"context"
	"errors"
	"net/http"

	"papertrader/src/scheduler"

	"github.com/go-chi/chi/v5"
)

type schedulerControl interface {
	State() scheduler.State
	Busy() bool
	Start() error
	Hide()
	Show()
	Disable()
	Tick(ctx context.Context) (bool, error)
}

type schedulerResponse struct {
	State scheduler.State `json:"state"`
	Busy  bool            `json:"busy"`
	Ran   *bool           `json:"ran,omitempty"`
	Error string          `json:"error,omitempty"`
}

func SchedulerStateHandler(s schedulerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, schedulerResponse{State: s.State(), Busy: s.Busy()})
	}
}

// SchedulerActionHandler applies the {action} URL parameter: start, pause,
// resume, stop or refresh. refresh runs one cycle now if the scheduler is
// running and idle.
func SchedulerActionHandler(s schedulerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := schedulerResponse{}
		switch chi.URLParam(r, "action") {
		case "start":
			if err := s.Start(); err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, scheduler.ErrStopped) {
					status = http.StatusConflict
				}
				writeError(w, status, err.Error())
				return
			}
		case "pause":
			s.Hide()
		case "resume":
			s.Show()
		case "stop":
			s.Disable()
		case "refresh":
			ran, err := s.Tick(r.Context())
			resp.Ran = &ran
			if err != nil {
				resp.Error = err.Error()
			}
		default:
			writeError(w, http.StatusBadRequest, "unknown action")
			return
		}
		resp.State = s.State()
		resp.Busy = s.Busy()
		writeJSON(w, http.StatusOK, resp)
	}
}
