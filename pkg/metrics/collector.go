package metrics

import (
	"time"

	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
)

// Collector periodically samples entity counts from the store
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectModuleMetrics()
	c.collectAssetMetrics()
	c.collectTaskMetrics()
}

func (c *Collector) collectModuleMetrics() {
	modules, err := c.store.ListModules()
	if err != nil {
		return
	}

	counts := map[types.ModuleStatus]int{
		types.ModuleStatusDetected:   0,
		types.ModuleStatusInstalling: 0,
		types.ModuleStatusTesting:    0,
		types.ModuleStatusAvailable:  0,
		types.ModuleStatusError:      0,
	}
	for _, module := range modules {
		counts[module.Status]++
	}
	for status, count := range counts {
		ModulesTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (c *Collector) collectAssetMetrics() {
	assets, err := c.store.ListAssets()
	if err != nil {
		return
	}

	counts := map[types.AssetStatus]int{
		types.AssetStatusPending:   0,
		types.AssetStatusAvailable: 0,
		types.AssetStatusFailed:    0,
	}
	for _, asset := range assets {
		counts[asset.Status]++
	}
	for status, count := range counts {
		AssetsTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (c *Collector) collectTaskMetrics() {
	tasks, err := c.store.ListTasks()
	if err != nil {
		return
	}

	counts := map[types.TaskStatus]int{
		types.TaskStatusBlocked:   0,
		types.TaskStatusQueued:    0,
		types.TaskStatusRunning:   0,
		types.TaskStatusCompleted: 0,
		types.TaskStatusFailed:    0,
	}
	for _, task := range tasks {
		counts[task.Status]++
	}
	for status, count := range counts {
		TasksTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}
