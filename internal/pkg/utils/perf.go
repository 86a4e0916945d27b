package utils

import (
	"fmt"
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"

	_ "net/http/pprof"
)

// RunPerfEndpoint starts pprof handlers on debug.port if configured, blocks
func RunPerfEndpoint() {
	port := goapp.Config.GetInt("debug.port")
	if port <= 0 {
		goapp.Log.Debug().Msg("no debug.port - skip pprof endpoint")
		return
	}
	goapp.Log.Info().Int("port", port).Msg("starting pprof endpoint")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil); err != nil {
		goapp.Log.Error().Err(err).Msg("can't start pprof endpoint")
	}
}
