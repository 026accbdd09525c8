package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"time"
)

type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval (e.g., 30s)
	CountThreshold int           // max unique logs before flush (e.g., 100)
	Topic          string        // topic to send aggregated logs
	Publisher      Publisher     // interface to send aggregated logs
}

// AggregatedLogEntry is one deduplicated log line with its occurrence
// count over the collection window.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector batches identical log lines and ships them to a
// Publisher on a timer or when the batch fills up. Close flushes the
// remainder and waits for in-flight publishes, so it must run before
// the publisher stops.
type LogCollector struct {
	config *CollectionConfig
	logMap map[uint64]*AggregatedLogEntry
	mutex  sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	ctx, cancel := context.WithCancel(context.Background())

	c := &LogCollector{
		config: config,
		logMap: make(map[uint64]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.flushLoop()

	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := dedupKey(level, message, fields, caller)

	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return
	}
	if entry, exists := c.logMap[key]; exists {
		entry.Count++
		entry.LastSeen = now
	} else {
		c.logMap[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []AggregatedLogEntry
	if len(c.logMap) >= c.config.CountThreshold {
		batch = c.drainLocked()
		c.wg.Add(1)
	}
	c.mutex.Unlock()

	if batch != nil {
		go c.publish(batch)
	}
}

// dedupKey identifies a log line by everything that makes it distinct.
// Two lines differing only in field values count separately.
func dedupKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(level))
	h.Write([]byte{0})
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(caller))
	h.Write([]byte{0})
	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			h.Write(data)
		} else {
			h.Write([]byte(strconv.Itoa(len(fields))))
		}
	}
	return h.Sum64()
}

func (c *LogCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.ctx.Done():
			c.flush()
			return
		}
	}
}

func (c *LogCollector) flush() {
	c.mutex.Lock()
	batch := c.drainLocked()
	if batch != nil {
		c.wg.Add(1)
	}
	c.mutex.Unlock()

	if batch != nil {
		go c.publish(batch)
	}
}

func (c *LogCollector) drainLocked() []AggregatedLogEntry {
	if len(c.logMap) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.logMap))
	for _, entry := range c.logMap {
		batch = append(batch, *entry)
	}
	c.logMap = make(map[uint64]*AggregatedLogEntry)
	return batch
}

// publish ships a batch. Failures go to stderr since logging them
// would feed the collector again.
func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
		fmt.Fprintf(os.Stderr, "log collector publish: %v\n", err)
	}
}

// Close flushes pending entries and blocks until every publish has
// finished.
func (c *LogCollector) Close() {
	c.mutex.Lock()
	c.closed = true
	c.mutex.Unlock()

	c.cancel()
	c.wg.Wait()
}
