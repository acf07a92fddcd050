package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gridd/pkg/types"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logStart(r *http.Request, caps types.Capabilities) {
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Interface("capabilities", caps)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("new session start")
		return
	}
	log.Printf("new session start path=%s caps=%v", r.URL.Path, caps)
}

func logEnd(r *http.Request, status int, dur time.Duration, err error) {
	if zlog != nil {
		z := zlog.Info().Int("status", status).Dur("dur", dur)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("new session end")
		return
	}
	log.Printf("new session end status=%d dur=%s err=%v", status, dur, err)
}
