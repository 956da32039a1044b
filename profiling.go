package main

import (
	"os"
	"runtime/pprof"
	"sync"

	"go.uber.org/zap"
)

// startDefaultPGORecording writes a CPU profile to path until the returned
// stop function is called. stop is safe to call more than once.
func startDefaultPGORecording(path string, log *zap.Logger) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			if err := f.Close(); err != nil {
				log.Warn("closing CPU profile", zap.String("path", path), zap.Error(err))
				return
			}
			if info, err := os.Stat(path); err == nil {
				log.Info("CPU profile written", zap.String("path", path), zap.Int64("bytes", info.Size()))
			}
		})
	}
	return stop, nil
}
