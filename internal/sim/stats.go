package sim

import "sync"

type Counter struct {
	mu         sync.Mutex
	messages   int
	replyBytes int64
}

func (c *Counter) Add(replyLen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages++
	c.replyBytes += int64(replyLen)
}

func (c *Counter) Messages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

func (c *Counter) AvgReplyLen() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages == 0 {
		return 0
	}
	return float64(c.replyBytes) / float64(c.messages)
}
