package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uascm/uascm/internal/nodeid"
)

type wireEvent struct {
	NodeId    string `json:"nodeId"`
	ModTimeMs int64  `json:"mtime"`
}

// Subscribe opens the bridge's server-sent-event stream for the given nodes.
// The stream reconnects with backoff until ctx is canceled; both returned
// channels close when the subscription ends.
func (c *BridgeClient) Subscribe(ctx context.Context, ids []nodeid.NodeId) (<-chan ChangeEvent, <-chan error, error) {
	events := make(chan ChangeEvent, 100)
	errs := make(chan error, 1)

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}
	path := "/api/events?nodes=" + url.QueryEscape(strings.Join(params, ","))

	go c.subscribeLoop(ctx, path, events, errs)
	return events, errs, nil
}

func (c *BridgeClient) subscribeLoop(ctx context.Context, path string, events chan<- ChangeEvent, errs chan<- error) {
	defer close(events)
	defer close(errs)

	const reconnectMin = time.Second
	const reconnectMax = 30 * time.Second
	delay := reconnectMin

	for {
		if ctx.Err() != nil {
			return
		}
		err := c.streamEvents(ctx, path, events)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn("event stream dropped",
				zap.Error(err),
				zap.Duration("reconnect_in", delay))
			select {
			case errs <- err:
			default:
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > reconnectMax {
				delay = reconnectMax
			}
			continue
		}
		delay = reconnectMin
	}
}

func (c *BridgeClient) streamEvents(ctx context.Context, path string, events chan<- ChangeEvent) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var we wireEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &we); err != nil {
			c.log.Warn("unparseable change event", zap.String("data", data), zap.Error(err))
			continue
		}
		id, err := nodeid.Parse(we.NodeId)
		if err != nil {
			c.log.Warn("change event with bad node id", zap.String("nodeId", we.NodeId))
			continue
		}
		select {
		case events <- ChangeEvent{NodeId: id, ModTime: time.UnixMilli(we.ModTimeMs).UTC()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
