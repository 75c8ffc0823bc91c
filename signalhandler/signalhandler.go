package signalhandler

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupHandler calls onShutdown on the first SIGINT or SIGTERM. A second
// signal, or a nil callback, exits immediately.
func SetupHandler(onShutdown func()) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		if onShutdown == nil {
			os.Exit(0)
		}

		go func() {
			<-sigChan
			os.Exit(1)
		}()

		onShutdown()
	}()
}

// GetOptimalProcs returns the optimal number of concurrent analyses for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// OpenCV parallelises k-means internally, so leave headroom
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
