package queue

import "fmt"

// GetQueueStats reports depth and consumers of the request and result queues
// along with the number of running workers.
func (q *QueueService) GetQueueStats() (map[string]interface{}, error) {
	if q.channel == nil {
		return nil, fmt.Errorf("queue channel not available")
	}

	stats := map[string]interface{}{
		"workers": q.activeWorkers.Load(),
	}

	for label, name := range map[string]string{
		"requests": q.cfg.RequestQueue,
		"results":  q.cfg.ResultRoutingKey,
	} {
		info, err := q.channel.QueueInspect(name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect queue %s: %w", name, err)
		}
		stats[label] = map[string]interface{}{
			"name":      info.Name,
			"messages":  info.Messages,
			"consumers": info.Consumers,
		}
	}

	return stats, nil
}

// HealthCheck checks if RabbitMQ is available and requests are being consumed.
func (q *QueueService) HealthCheck() string {
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}

	if q.channel == nil {
		return "unhealthy: channel not available"
	}

	if q.activeWorkers.Load() == 0 {
		return "unhealthy: no active workers"
	}

	return "healthy"
}
