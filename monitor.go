package ballast

import (
	"time"
)

// Start starts the monitor loop of ballast. It samples the process every
// CollectInterval, keeps the recent samples, refreshes the metrics and
// warns when rss gets close to the container memory limit.
func (b *Ballast) Start() {
	b.startOnce.Do(func() {
		b.started.Store(true)
		go b.startCollectLoop()
	})
}

// Stop stops the monitor loop and the stress session. The memory buffer
// is left untouched.
func (b *Ballast) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopC)
		if b.started.Load() {
			<-b.loopDone
		}
		b.CPU.Stop()
	})
}

func (b *Ballast) startCollectLoop() {
	defer close(b.loopDone)

	ticker := time.NewTicker(b.opts.CollectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopC:
			return
		case <-ticker.C:
			b.collect()
		}
	}
}

func (b *Ballast) collect() {
	usage, err := b.probe.memoryUsage()
	if err != nil {
		b.opts.Logger.Errorf("[ballast] collect memory usage failed: %v", err)
		return
	}
	cpu, err := b.probe.cpuPercent()
	if err != nil {
		b.opts.Logger.Errorf("[ballast] collect cpu usage failed: %v", err)
		return
	}

	b.collectCount++
	b.rssStats.push(bytesToMB(usage.RSS))
	b.cpuStats.push(cpu)

	b.metrics.RSSBytes.Set(float64(usage.RSS))
	b.metrics.VMSBytes.Set(float64(usage.VMS))
	b.metrics.CPUPercent.Set(cpu)
	b.metrics.CPUPercentAvg.Set(b.cpuStats.avg())
	b.metrics.StressActiveThreads.Set(float64(b.CPU.RunningWorkers()))
	b.updateMemoryMetrics()

	b.opts.Logger.Debugf("[ballast] collect cycle %d, rss: %.2fMB, cpu: %.2f%%, rss avg: %.2fMB, cpu avg: %.2f%%, cpu max: %.2f%%",
		b.collectCount, bytesToMB(usage.RSS), cpu, b.rssStats.avg(), b.cpuStats.avg(), b.cpuStats.max())

	b.memCheck(usage.RSS)
}

// memCheck logs once when rss crosses the warn percent of the container
// memory limit, and once when it falls back below.
func (b *Ballast) memCheck(rss uint64) {
	limit := b.limits.MemoryBytes
	if limit <= 0 || b.opts.MemWarnPercent <= 0 {
		return
	}

	percent := float64(rss) * 100 / float64(limit)
	switch {
	case percent >= float64(b.opts.MemWarnPercent) && !b.memWarned:
		b.memWarned = true
		b.opts.Logger.Warnf("[ballast] rss %.2fMB is %.2f%% of the container memory limit %.2fMB",
			bytesToMB(rss), percent, bytesToMB(uint64(limit)))
	case percent < float64(b.opts.MemWarnPercent) && b.memWarned:
		b.memWarned = false
		b.opts.Logger.Infof("[ballast] rss %.2fMB is back under %d%% of the container memory limit",
			bytesToMB(rss), b.opts.MemWarnPercent)
	}
}
