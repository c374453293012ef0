package bulk

import "time"

// logCapacity bounds the per-run log buffer; older entries are evicted first.
const logCapacity = 10

// LogRing is a fixed-capacity ring buffer of recent log lines.
type LogRing struct {
	entries []string
	start   int
	count   int
}

func NewLogRing(capacity int) *LogRing {
	return &LogRing{entries: make([]string, capacity)}
}

// Append records a line, evicting the oldest one when full.
func (r *LogRing) Append(line string) {
	if r.count < len(r.entries) {
		r.entries[(r.start+r.count)%len(r.entries)] = line
		r.count++
		return
	}
	r.entries[r.start] = line
	r.start = (r.start + 1) % len(r.entries)
}

// Entries returns the buffered lines oldest-first.
func (r *LogRing) Entries() []string {
	out := make([]string, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(r.start+i)%len(r.entries)])
	}
	return out
}

// Progress is the ephemeral state of one batch run. It is owned exclusively
// by the job that created it: dispatch updates it step by step and snapshots
// of it travel inside progress events. Nothing here is persisted.
type Progress struct {
	Total            int
	Current          int
	Successful       int
	Failed           int
	CurrentRecipient string
	StartedAt        time.Time

	logs *LogRing
	now  func() time.Time
}

func NewProgress(total int) *Progress {
	p := &Progress{
		Total: total,
		now:   time.Now,
		logs:  NewLogRing(logCapacity),
	}
	p.StartedAt = p.now()
	return p
}

// Elapsed is the wall time since the run started.
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.StartedAt)
}

// EstimateRemaining projects the remaining duration from the average time
// spent per item so far. Zero until the first item is underway.
func (p *Progress) EstimateRemaining() time.Duration {
	if p.Current == 0 {
		return 0
	}
	avg := p.Elapsed() / time.Duration(p.Current)
	return avg * time.Duration(p.Total-p.Current)
}

// Percent is the rounded completion percentage of the current item index.
func (p *Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(float64(p.Current)/float64(p.Total)*100 + 0.5)
}

// Log appends one line to the bounded log buffer.
func (p *Progress) Log(line string) {
	p.logs.Append(line)
}

// RecentLogs returns the last few log lines, oldest first.
func (p *Progress) RecentLogs() []string {
	return p.logs.Entries()
}
